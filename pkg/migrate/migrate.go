package migrate

import (
	"context"

	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/db/models"
	"github.com/framesmith/framesmith-backend/pkg/logger"
)

// MaybeRunDev synchronizes the schema automatically when the app runs in dev
// mode with the flag enabled. Production schema changes are applied out of
// band.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.DB.AutoMigrate {
		return nil
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "env", cfg.App.Env)
		logg.Info(ctx, "running schema auto-migration (dev only)")
	}

	err := client.DB().WithContext(ctx).AutoMigrate(
		&models.ProductVariant{},
		&models.Stock{},
		&models.Address{},
		&models.Cart{},
		&models.CartItem{},
		&models.Promotion{},
		&models.PromoUsageLog{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Prescription{},
		&models.PrescriptionDetail{},
		&models.OrderStatusHistory{},
		&models.ShipmentInfo{},
	)
	if err != nil {
		return err
	}

	if logg != nil {
		logg.Info(ctx, "schema auto-migration completed")
	}
	return nil
}
