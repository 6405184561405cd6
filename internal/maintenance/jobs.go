package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/annetom/pizzaria-checkout/internal/menu"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

// StoragePurgeJob deletes expired session entries from backends that do not
// expire keys on their own.
type StoragePurgeJob struct {
	purger storage.Purger
	logg   *logger.Logger
}

func NewStoragePurgeJob(purger storage.Purger, logg *logger.Logger) (*StoragePurgeJob, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &StoragePurgeJob{purger: purger, logg: logg}, nil
}

func (j *StoragePurgeJob) Name() string { return "storage-purge" }

func (j *StoragePurgeJob) Run(ctx context.Context) error {
	removed, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired entries: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", removed), "maintenance.storage_purged")
	return nil
}

// MenuProbeJob fetches the backend menu and fails when checkout could not
// price from it.
type MenuProbeJob struct {
	fetcher menu.Fetcher
	logg    *logger.Logger
}

func NewMenuProbeJob(fetcher menu.Fetcher, logg *logger.Logger) (*MenuProbeJob, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("menu fetcher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &MenuProbeJob{fetcher: fetcher, logg: logg}, nil
}

func (j *MenuProbeJob) Name() string { return "menu-probe" }

func (j *MenuProbeJob) Run(ctx context.Context) error {
	resp, err := j.fetcher.FetchMenu(ctx)
	if err != nil {
		return fmt.Errorf("fetch menu: %w", err)
	}
	if resp.Failed() {
		return fmt.Errorf("menu request failed: %s", resp.Message())
	}
	cat, err := menu.ParseCatalog(resp.Data)
	if err != nil {
		return fmt.Errorf("parse menu: %w", err)
	}
	if len(cat.Pizzas) == 0 {
		return fmt.Errorf("menu has no pizzas")
	}

	var unpriced []string
	for _, p := range cat.Pizzas {
		if !p.PriceGrande.IsPositive() {
			unpriced = append(unpriced, p.ID)
		}
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"pizzas":  len(cat.Pizzas),
		"borders": len(cat.Borders),
		"extras":  len(cat.Extras),
	})
	if len(unpriced) > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "unpriced", strings.Join(unpriced, ",")), "maintenance.menu_unpriced")
		return nil
	}
	j.logg.Info(ctx, "maintenance.menu_ok")
	return nil
}
