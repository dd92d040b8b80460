package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseConfig selects the service-account credentials for the Admin SDK.
type FirebaseConfig struct {
	ProjectID          string
	ServiceAccountJSON string
	ServiceAccountPath string
}

// FirebaseProvider implements Provider on top of the Firebase Admin SDK.
type FirebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider initialises the Admin SDK. It returns ErrNotConfigured
// when neither inline JSON nor a credentials file is supplied.
func NewFirebaseProvider(ctx context.Context, cfg FirebaseConfig) (*FirebaseProvider, error) {
	var opt option.ClientOption
	switch {
	case cfg.ServiceAccountJSON != "":
		opt = option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	case cfg.ServiceAccountPath != "":
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	default:
		return nil, ErrNotConfigured
	}

	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, appCfg, opt)
	if err != nil {
		return nil, fmt.Errorf("identity: init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: init firebase auth: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

// VerifyIDToken verifies signature, audience and expiry of an ID token.
func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, token string) (*VerifiedToken, error) {
	tok, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return &VerifiedToken{
		UID:    tok.UID,
		Email:  ClaimString(tok.Claims, "email"),
		Name:   ClaimString(tok.Claims, "name"),
		Claims: tok.Claims,
	}, nil
}

// GetUser loads the account record including custom claims.
func (p *FirebaseProvider) GetUser(ctx context.Context, uid string) (*UserProfile, error) {
	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, uid)
		}
		return nil, fmt.Errorf("identity: get user: %w", err)
	}
	profile := &UserProfile{
		EmailVerified: rec.EmailVerified,
		Disabled:      rec.Disabled,
		CustomClaims:  rec.CustomClaims,
	}
	if rec.UserInfo != nil {
		profile.UID = rec.UID
		profile.Email = rec.Email
		profile.Name = rec.DisplayName
		profile.PhotoURL = rec.PhotoURL
	}
	return profile, nil
}

// SetCustomClaims replaces the custom claims of uid. A nil map clears them.
func (p *FirebaseProvider) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	if err := p.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		if auth.IsUserNotFound(err) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, uid)
		}
		return fmt.Errorf("identity: set custom claims: %w", err)
	}
	return nil
}

func classifyTokenError(err error) error {
	switch {
	case auth.IsIDTokenExpired(err):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case auth.IsIDTokenInvalid(err):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	default:
		return fmt.Errorf("identity: verify token: %w", err)
	}
}
