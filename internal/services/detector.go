package services

import (
	"log/slog"

	"github.com/straydogstrength/specsheetflow/internal/models"
)

// HasChanged reports whether a freshly aggregated record differs materially
// from the persisted one. A nil persisted record always counts as changed.
// Features and specs compare as unordered sets so upstream reordering does
// not force a regeneration.
func HasChanged(fresh *models.ProductRecord, persisted *models.ProductRecord) bool {
	if persisted == nil {
		return true
	}
	logCtx := slog.With("productId", fresh.ProductID)

	if fresh.SKU != persisted.SKU ||
		fresh.Title != persisted.Title ||
		fresh.Description != persisted.Description ||
		fresh.MainImageURL != persisted.MainImageURL ||
		fresh.Status != persisted.Status {
		logCtx.Info("Change detected in scalar fields.")
		return true
	}

	if variantsChanged(fresh.Variants, persisted.Variants) {
		logCtx.Info("Change detected in variants.")
		return true
	}

	if !setsEqual(featureKeys(fresh.Features), featureKeys(persisted.Features)) {
		logCtx.Info("Change detected in features.")
		return true
	}
	if !setsEqual(specKeys(fresh.Specs), specKeys(persisted.Specs)) {
		logCtx.Info("Change detected in specs.")
		return true
	}
	return false
}

func variantsChanged(fresh, persisted []models.Variant) bool {
	if len(fresh) != len(persisted) {
		return true
	}
	byID := make(map[string]models.Variant, len(persisted))
	for _, v := range persisted {
		byID[v.ID] = v
	}
	for _, v := range fresh {
		old, ok := byID[v.ID]
		if !ok || old.SKU != v.SKU {
			return true
		}
	}
	return false
}

func featureKeys(features []models.Feature) map[string]struct{} {
	set := make(map[string]struct{}, len(features))
	for _, f := range features {
		set[f.Title+":"+f.ImageURL] = struct{}{}
	}
	return set
}

func specKeys(specs []models.Spec) map[string]struct{} {
	set := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		set[s.Key+":"+s.Value] = struct{}{}
	}
	return set
}

// setsEqual is full two-directional set equality.
func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
