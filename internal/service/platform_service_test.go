package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/tokenstore"
	"github.com/maheshrc27/postsphere/internal/transfer"
	"github.com/maheshrc27/postsphere/pkg/utils"
)

const testSecret = "test-secret"

func (f *fixture) platformService() PlatformService {
	return NewPlatformService(testSecret, f.registry, f.store, f.accounts, f.orgService)
}

func (f *fixture) state(t *testing.T, userID int64) string {
	t.Helper()
	state, err := utils.GenerateState(testSecret, userID, f.account.OrganizationID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return state
}

func TestAuthURLCarriesSignedState(t *testing.T) {
	f := newFixture(t)

	raw, err := f.platformService().AuthURL(context.Background(), memberID, f.account.OrganizationID, "instagram")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := utils.ValidateState(testSecret, u.Query().Get("state"))
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if claims.UserID != memberID || claims.OrganizationID != f.account.OrganizationID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := f.platformService().AuthURL(context.Background(), outsiderID, f.account.OrganizationID, "instagram"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.platformService().AuthURL(context.Background(), memberID, f.account.OrganizationID, "myspace"); !errors.Is(err, platforms.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestCallbackFailsBeforeNetwork(t *testing.T) {
	cases := []struct {
		name   string
		params func(t *testing.T, f *fixture) CallbackParams
		check  func(t *testing.T, err error)
	}{
		{
			name: "platform error",
			params: func(*testing.T, *fixture) CallbackParams {
				return CallbackParams{Error: "access_denied", ErrorReason: "user_denied", ErrorDescription: "Permissions error"}
			},
			check: func(t *testing.T, err error) {
				var oauthErr *platforms.OAuthError
				if !errors.As(err, &oauthErr) || oauthErr.Reason != "user_denied" {
					t.Fatalf("expected OAuthError, got %v", err)
				}
			},
		},
		{
			name:   "missing code",
			params: func(t *testing.T, f *fixture) CallbackParams { return CallbackParams{State: f.state(t, memberID)} },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, platforms.ErrMissingCode) {
					t.Fatalf("expected ErrMissingCode, got %v", err)
				}
			},
		},
		{
			name:   "forged state",
			params: func(*testing.T, *fixture) CallbackParams { return CallbackParams{Code: "c", State: "forged"} },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
			},
		},
		{
			name:   "outsider state",
			params: func(t *testing.T, f *fixture) CallbackParams { return CallbackParams{Code: "c", State: f.state(t, outsiderID)} },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.platformService().Callback(context.Background(), "instagram", tc.params(t, f))
			tc.check(t, err)
			if f.provider.exchanges != 0 {
				t.Fatalf("expected no exchange, got %d", f.provider.exchanges)
			}
		})
	}
}

func TestCallbackLinksAccount(t *testing.T) {
	f := newFixture(t)

	account, err := f.platformService().Callback(context.Background(), "instagram", CallbackParams{
		Code:  "abc",
		State: f.state(t, memberID),
	})
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if account.AccountID != "ext-1" || account.AccountName != "Acme" || account.AccountUsername != "acme" {
		t.Fatalf("unexpected account %+v", account)
	}

	cred, err := f.store.Get(context.Background(), "instagram", "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	if cred.ShortLivedToken != "short-abc" || cred.LongLivedToken != "long-short-abc" {
		t.Fatalf("unexpected credential %+v", cred)
	}
	if f.provider.lastAccessed != "long-short-abc" {
		t.Fatalf("profile should use the long-lived token, got %q", f.provider.lastAccessed)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.exchangeErr = &platforms.APIError{Platform: platforms.Instagram, Stage: platforms.StageShortLivedToken, StatusCode: 400}

	_, err := f.platformService().Callback(context.Background(), "instagram", CallbackParams{Code: "abc", State: f.state(t, memberID)})
	if platforms.StageOf(err) != platforms.StageShortLivedToken {
		t.Fatalf("expected short_lived_token stage, got %v", err)
	}
	if _, err := f.store.Get(context.Background(), "instagram", "ext-1"); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Fatalf("nothing should be stored, got %v", err)
	}
}

func TestCreateManualAccount(t *testing.T) {
	f := newFixture(t)
	expires := time.Now().Add(24 * time.Hour)
	sac := &transfer.SocialAccountCreation{
		OrganizationID: f.account.OrganizationID,
		Platform:       "Instagram",
		AccountID:      "ext-1",
		AccessToken:    "tok",
		ExpiresAt:      &expires,
	}

	account, err := f.platformService().CreateManual(context.Background(), memberID, sac)
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if account.Platform != string(platforms.Instagram) || account.AccountName != "Acme" || account.AccountUsername != "acme" {
		t.Fatalf("unexpected account %+v", account)
	}
	if f.provider.lastAccessed != "tok" {
		t.Fatalf("token should be verified against the profile, got %q", f.provider.lastAccessed)
	}
	cred, err := f.store.Get(context.Background(), "instagram", "ext-1")
	if err != nil || !cred.Authorized() {
		t.Fatalf("expected authorized credential, got %+v (%v)", cred, err)
	}

	if _, err := f.platformService().CreateManual(context.Background(), memberID, sac); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate, got %v", err)
	}
	sac.Platform = "x"
	if _, err := f.platformService().CreateManual(context.Background(), memberID, sac); !errors.Is(err, platforms.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform for an unconfigured platform, got %v", err)
	}
	sac.Platform = "myspace"
	if _, err := f.platformService().CreateManual(context.Background(), memberID, sac); !errors.Is(err, platforms.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestCreateManualRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	f.authorize(t, time.Now().Add(time.Hour))
	ctx := context.Background()

	otherOrg, _ := f.orgs.Create(ctx, nil, &models.Organization{Name: "other", OwnerID: outsiderID})
	_ = f.orgs.AddMember(ctx, nil, otherOrg, outsiderID)

	// The token resolves to a different account than the one it claims.
	_, err := f.platformService().CreateManual(ctx, outsiderID, &transfer.SocialAccountCreation{
		OrganizationID: otherOrg,
		Platform:       "instagram",
		AccountID:      "ig-1",
		AccessToken:    "junk",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	cred, err := f.store.Get(ctx, "instagram", "ig-1")
	if err != nil {
		t.Fatal(err)
	}
	if cred.LongLivedToken != "long" {
		t.Fatalf("stored token was replaced with %q", cred.LongLivedToken)
	}

	post := f.addPost(t, models.PostStatusScheduled)
	if _, err := f.publishService().PublishPost(ctx, post.ID); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if f.provider.lastAccessed != "long" {
		t.Fatalf("publish used token %q", f.provider.lastAccessed)
	}
}

func TestDeleteAccountRemovesUnusedCredential(t *testing.T) {
	f := newFixture(t)
	f.authorize(t, time.Now().Add(time.Hour))
	svc := f.platformService()
	ctx := context.Background()

	// A second organization linking the same external account shares the credential.
	orgID, _ := f.orgs.Create(ctx, nil, &models.Organization{Name: "other", OwnerID: memberID})
	_ = f.orgs.AddMember(ctx, nil, orgID, memberID)
	shared := f.accounts.add(models.SocialAccount{OrganizationID: orgID, Platform: "instagram", AccountID: "ig-1"})

	if err := svc.Delete(ctx, outsiderID, f.account.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := svc.Delete(ctx, memberID, f.account.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.store.Get(ctx, "instagram", "ig-1"); err != nil {
		t.Fatalf("shared credential must survive, got %v", err)
	}
	if f.provider.revokes != 0 {
		t.Fatal("shared credential must not be revoked")
	}

	if err := svc.Delete(ctx, memberID, shared.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.store.Get(ctx, "instagram", "ig-1"); !errors.Is(err, tokenstore.ErrNotFound) {
		t.Fatalf("expected credential removed, got %v", err)
	}
	if f.provider.revokes != 1 {
		t.Fatalf("expected one revoke, got %d", f.provider.revokes)
	}
	if _, err := svc.Get(ctx, memberID, shared.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAccounts(t *testing.T) {
	f := newFixture(t)

	got, err := f.platformService().List(context.Background(), memberID, f.account.OrganizationID, transfer.Page{})
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one account, got %d (%v)", len(got), err)
	}
	if _, err := f.platformService().List(context.Background(), outsiderID, f.account.OrganizationID, transfer.Page{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !strings.Contains(strings.Join(platformNames(f.platformService().Platforms()), ","), "instagram") {
		t.Fatal("instagram should be listed")
	}
}

func platformNames(ps []platforms.Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
