package syncer

import "github.com/smallbiznis/ispreport/internal/permcache/domain"

type permitKey struct {
	reseller, visp, item int64
	hasItem              bool
}

// Collapse drops rows whose natural key repeats inside the snapshot. The last
// occurrence wins and keeps the position of the first.
func Collapse(snap domain.Snapshot) domain.Snapshot {
	snap.Resellers = lastWins(snap.Resellers, func(r domain.Reseller) int64 { return r.SourceID })
	snap.Visps = lastWins(snap.Visps, func(r domain.Visp) int64 { return r.SourceID })
	snap.Centers = lastWins(snap.Centers, func(r domain.Center) int64 { return r.SourceID })
	snap.Supporters = lastWins(snap.Supporters, func(r domain.Supporter) int64 { return r.SourceID })
	snap.Statuses = lastWins(snap.Statuses, func(r domain.Status) int64 { return r.SourceID })
	snap.Services = lastWins(snap.Services, func(r domain.Service) int64 { return r.SourceID })

	snap.ServiceResellerAccess = lastWins(snap.ServiceResellerAccess, func(r domain.ServiceResellerAccess) [2]int64 {
		return [2]int64{r.ServiceID, r.ResellerID}
	})
	snap.StatusResellerAccess = lastWins(snap.StatusResellerAccess, func(r domain.StatusResellerAccess) [2]int64 {
		return [2]int64{r.StatusID, r.ResellerID}
	})
	snap.ServiceVispAccess = lastWins(snap.ServiceVispAccess, func(r domain.ServiceVispAccess) [2]int64 {
		return [2]int64{r.ServiceID, r.VispID}
	})
	snap.StatusVispAccess = lastWins(snap.StatusVispAccess, func(r domain.StatusVispAccess) [2]int64 {
		return [2]int64{r.StatusID, r.VispID}
	})
	snap.CenterVispAccess = lastWins(snap.CenterVispAccess, func(r domain.CenterVispAccess) [2]int64 {
		return [2]int64{r.CenterID, r.VispID}
	})

	snap.Permits = lastWins(snap.Permits, func(r domain.ResellerPermit) permitKey {
		k := permitKey{reseller: r.ResellerID, visp: r.VispID}
		if r.PermitItemID != nil {
			k.item, k.hasItem = *r.PermitItemID, true
		}
		return k
	})
	return snap
}

func lastWins[T any, K comparable](rows []T, key func(T) K) []T {
	if len(rows) < 2 {
		return rows
	}
	index := make(map[K]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}
