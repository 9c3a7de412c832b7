package gbpsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ErrCredentialUnavailable is returned when a listing has no linked
// credential or the refresh itself fails. It is fatal to the operation and
// never retried here.
var ErrCredentialUnavailable = errors.New("credential unavailable")

// expirySkew refreshes a token slightly before its stated expiry so a call
// issued right at the boundary does not race the provider's clock.
const expirySkew = 2 * time.Minute

type listingTokenSource struct {
	db         *gorm.DB
	businessId string
	listingId  int
}

// TokenSourceForListing resolves bearer tokens for one listing, refreshing
// the stored credential transparently when it is stale.
func TokenSourceForListing(db *gorm.DB, businessId string, listingId int) *listingTokenSource {
	return &listingTokenSource{db: db, businessId: businessId, listingId: listingId}
}

func (s *listingTokenSource) Token(ctx context.Context) (string, error) {
	var cred models.ProviderCredential
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND listing_id = ? AND provider = ?",
			s.businessId, s.listingId, models.ProviderGoogleBusinessProfile).
		Take(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: no credential linked for listing %d", ErrCredentialUnavailable, s.listingId)
		}
		return "", err
	}

	if cred.AccessToken != "" && cred.TokenExpiry != nil && time.Now().Add(expirySkew).Before(*cred.TokenExpiry) {
		return cred.AccessToken, nil
	}

	if strings.TrimSpace(cred.RefreshToken) == "" {
		return "", fmt.Errorf("%w: no refresh token for listing %d", ErrCredentialUnavailable, s.listingId)
	}

	tok, err := oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh failed: %v", ErrCredentialUnavailable, err)
	}

	// Persist the refreshed token; a failed write is non-fatal because the
	// token in hand is already valid.
	_ = s.db.WithContext(ctx).Model(&models.ProviderCredential{}).
		Where("id = ?", cred.ID).
		Updates(map[string]interface{}{
			"access_token": tok.AccessToken,
			"token_expiry": tok.Expiry,
		}).Error

	return tok.AccessToken, nil
}

func oauthConfig() *oauth2.Config {
	tokenURL := strings.TrimSpace(os.Getenv("GBP_OAUTH_TOKEN_URL"))
	if tokenURL == "" {
		tokenURL = "https://oauth2.googleapis.com/token"
	}
	return &oauth2.Config{
		ClientID:     os.Getenv("GBP_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("GBP_OAUTH_CLIENT_SECRET"),
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
}
