// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package reconcile

import (
	"context"
	"fmt"

	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/providers"
)

// syncMirror reconciles the external mirror list against the pass
// result with an add/remove diff. The mirror is never replaced
// wholesale: items someone added out of band and that we also selected
// stay untouched. Mirror failure is logged, not fatal; the local list is
// already committed.
func (r *Reconciler) syncMirror(ctx context.Context, mirrorID string, items []models.ListItem) {
	current, err := r.activity.MirrorItems(ctx, mirrorID)
	if err != nil {
		r.log.Warn().Err(err).Str("mirror_id", mirrorID).Msg("Mirror read failed, skipping mirror sync")
		return
	}

	adds, removes := mirrorDiff(current, items)
	r.resolveMirrorIDs(ctx, adds)

	if len(adds) > 0 {
		if err := r.activity.AddMirrorItems(ctx, mirrorID, adds); err != nil {
			r.log.Warn().Err(err).Str("mirror_id", mirrorID).
				Int("count", len(adds)).Msg("Mirror add failed")
		} else {
			metrics.MirrorOps.WithLabelValues("add").Add(float64(len(adds)))
		}
	}
	if len(removes) > 0 {
		if err := r.activity.RemoveMirrorItems(ctx, mirrorID, removes); err != nil {
			r.log.Warn().Err(err).Str("mirror_id", mirrorID).
				Int("count", len(removes)).Msg("Mirror remove failed")
		} else {
			metrics.MirrorOps.WithLabelValues("remove").Add(float64(len(removes)))
		}
	}
}

// resolveMirrorIDs backfills provider-native IDs on adds that only carry
// a catalog ID. Resolution failure or an unknown item keeps the field
// zero; the provider then matches on the catalog ID alone.
func (r *Reconciler) resolveMirrorIDs(ctx context.Context, adds []providers.MirrorItem) {
	for i := range adds {
		if adds[i].ActivityID != 0 || adds[i].CatalogID <= 0 {
			continue
		}
		id, err := r.activity.ResolveID(ctx, adds[i].Kind, adds[i].CatalogID)
		if err != nil {
			r.log.Warn().Err(err).Int64("catalog_id", adds[i].CatalogID).
				Msg("Mirror ID resolution failed")
			continue
		}
		adds[i].ActivityID = id
	}
}

func mirrorKey(catalogID int64, kind models.MediaKind) string {
	return fmt.Sprintf("%d:%s", catalogID, kind)
}

// mirrorDiff computes the add/remove sets between the mirror's actual
// contents and the desired list composition. Items without a catalog ID
// cannot be mirrored and are ignored.
func mirrorDiff(current []providers.MirrorItem, desired []models.ListItem) (adds, removes []providers.MirrorItem) {
	have := make(map[string]struct{}, len(current))
	for _, item := range current {
		have[mirrorKey(item.CatalogID, item.Kind)] = struct{}{}
	}

	want := make(map[string]struct{}, len(desired))
	for i := range desired {
		item := &desired[i]
		if item.CatalogID <= 0 {
			continue
		}
		key := mirrorKey(item.CatalogID, item.Kind)
		want[key] = struct{}{}
		if _, ok := have[key]; ok {
			continue
		}
		mi := providers.MirrorItem{CatalogID: item.CatalogID, Kind: item.Kind}
		if item.ActivityID != nil {
			mi.ActivityID = *item.ActivityID
		}
		adds = append(adds, mi)
	}

	for _, item := range current {
		if _, ok := want[mirrorKey(item.CatalogID, item.Kind)]; !ok {
			removes = append(removes, item)
		}
	}
	return adds, removes
}
