package permission

import (
	"github.com/smallbiznis/ispreport/internal/permission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("permission.service",
	fx.Provide(service.New),
)
