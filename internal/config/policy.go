package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy carries the report and profile knobs operators tune without a redeploy.
type Policy struct {
	HiddenServiceIDs []int64 `mapstructure:"hiddenServiceIds"`
	DefaultStatus    string  `mapstructure:"defaultStatus"`
	DefaultSupporter string  `mapstructure:"defaultSupporter"`
	SiteCreatorLabel string  `mapstructure:"siteCreatorLabel"`
}

func DefaultPolicy() Policy {
	return Policy{
		HiddenServiceIDs: []int64{
			32, 126, 78, 110, 129, 105, 69, 84, 137, 8, 7, 9,
			10, 117, 132, 91, 73, 143, 71, 70, 72, 76, 75,
		},
		DefaultStatus:    "active",
		DefaultSupporter: "default-supporter",
		SiteCreatorLabel: "- User_From_Site -",
	}
}

// Hidden reports whether a service id is excluded from reseller profiles.
func (p Policy) Hidden(serviceID int64) bool {
	for _, id := range p.HiddenServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ispreport")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ISPREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.hiddenServiceIds", defaults.HiddenServiceIDs)
	v.SetDefault("policy.defaultStatus", defaults.DefaultStatus)
	v.SetDefault("policy.defaultSupporter", defaults.DefaultSupporter)
	v.SetDefault("policy.siteCreatorLabel", defaults.SiteCreatorLabel)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	policy := DefaultPolicy()
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultPolicy()
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active policy. A nil holder yields the defaults.
func (h *PolicyHolder) Current() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if strings.TrimSpace(p.DefaultStatus) == "" {
		return errors.New("policy.defaultStatus cannot be empty")
	}
	for _, id := range p.HiddenServiceIDs {
		if id <= 0 {
			return errors.New("policy.hiddenServiceIds must be positive")
		}
	}
	return nil
}
