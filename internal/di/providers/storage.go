package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/objectstore"
)

// ProvidePresigner provides the photo URL signer. Without a bucket the server
// still starts; photo endpoints answer 503.
func ProvidePresigner(i do.Injector) (*objectstore.Presigner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p, err := objectstore.New(objectstore.Config{
		Bucket:          cfg.ObjectStore.Bucket,
		Region:          cfg.ObjectStore.Region,
		Endpoint:        cfg.ObjectStore.Endpoint,
		PathStyle:       cfg.ObjectStore.PathStyle,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		Timeout:         cfg.ObjectStore.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("photo storage: %w", err)
	}

	if p.Configured() {
		log.Info("Photo storage configured", "bucket", cfg.ObjectStore.Bucket, "region", cfg.ObjectStore.Region)
	} else {
		log.Warn("Photo storage not configured, photo endpoints are disabled")
	}
	return p, nil
}
