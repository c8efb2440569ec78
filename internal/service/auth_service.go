package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	config "github.com/maheshrc27/postsphere/configs"
	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/transfer"
	"github.com/maheshrc27/postsphere/pkg/utils"
)

const SessionDuration = 7 * 24 * time.Hour

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
	IssueSession(userID int64) (string, error)
}

type authService struct {
	secretKey string
	oauth     *oauth2.Config
	u         repository.UserRepository
	// fetchUser redeems a login code for the Google profile.
	fetchUser func(ctx context.Context, code string) (*transfer.GoogleUserInfo, error)
}

func NewAuthService(cfg *config.Config, u repository.UserRepository) AuthService {
	s := &authService{
		secretKey: cfg.SecretKey,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		u: u,
	}
	s.fetchUser = s.googleUser
	return s
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, invalidf("login code is empty")
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("google oauth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	info, err := s.fetchUser(ctx, code)
	if err != nil {
		return 0, err
	}
	if info.Email == "" {
		return 0, invalidf("google account has no email")
	}

	user, exists, err := s.u.GetByEmail(ctx, info.Email)
	if err != nil {
		return 0, err
	}

	if !exists {
		userID, err := s.u.Create(ctx, nil, &models.User{
			GoogleID:       info.ID,
			Email:          info.Email,
			Name:           info.Name,
			ProfilePicture: info.Picture,
		})
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}
		return userID, nil
	}

	if user.GoogleID != info.ID || user.Name != info.Name || user.ProfilePicture != info.Picture {
		user.GoogleID = info.ID
		user.Name = info.Name
		user.ProfilePicture = info.Picture
		if err := s.u.Update(ctx, user); err != nil {
			return 0, err
		}
	}
	return user.ID, nil
}

func (s *authService) IssueSession(userID int64) (string, error) {
	return utils.GenerateToken(s.secretKey, userID, SessionDuration)
}

func (s *authService) googleUser(ctx context.Context, code string) (*transfer.GoogleUserInfo, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("google code exchange: %w", err)
	}

	svc, err := goauth2.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, token)))
	if err != nil {
		return nil, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("google userinfo: %w", err)
	}

	return &transfer.GoogleUserInfo{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
