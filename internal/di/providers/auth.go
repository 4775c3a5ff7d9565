package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/idp"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

// ProvideVerifier provides the bearer token verifier selected by AUTH_MODE.
func ProvideVerifier(i do.Injector) (auth.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		v, err := auth.NewJWTVerifier(auth.JWTConfig{
			Issuer:        cfg.Auth.JWTIssuer,
			Audience:      cfg.Auth.JWTAudience,
			Secret:        cfg.Auth.JWTSecret,
			PublicKeyPath: cfg.Auth.JWTPublicKeyPath,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Verifying identity provider tokens", "issuer", cfg.Auth.JWTIssuer)
		return v, nil

	case config.AuthModePaseto:
		return do.MustInvoke[*auth.TokenService](i), nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

// ProvideTokenService provides the PASETO token service for locally issued tokens.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex := cfg.Auth.AccessTokenKey
	if keyHex == "" {
		var err error
		keyHex, err = auth.LoadOrGenerateKey(cfg.Data.BasePath)
		if err != nil {
			return nil, err
		}
		cfg.Auth.AccessTokenKey = keyHex
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return auth.NewTokenService(keyHex, cfg.Auth.AccessTokenDuration)
}

// ProvideDirectory provides the user directory that friend requests check
// targets against: the Cognito user pool in jwt mode when USER_POOL_ID is set,
// otherwise the locally provisioned users.
func ProvideDirectory(i do.Injector) (service.Directory, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.Mode == config.AuthModeJWT && cfg.Auth.UserPoolID != "" {
		d, err := idp.New(idp.Config{
			UserPoolID:      cfg.Auth.UserPoolID,
			Region:          cfg.Auth.CognitoRegion,
			Endpoint:        cfg.Auth.CognitoEndpoint,
			AccessKeyID:     cfg.Auth.CognitoAccessKeyID,
			SecretAccessKey: cfg.Auth.CognitoSecretAccessKey,
			Timeout:         cfg.Auth.DirectoryTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("user directory: %w", err)
		}
		log.Info("Checking users against Cognito", "user_pool_id", cfg.Auth.UserPoolID)
		return d, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	log.Info("Checking users against local records")
	return service.NewStoreDirectory(storeHandle.Store), nil
}
