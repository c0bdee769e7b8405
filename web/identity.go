package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

// Identity is the Discord account behind a completed OAuth flow
type Identity struct {
	DiscordID   string
	DisplayName string
}

// IdentityProvider runs the OAuth authorization code flow
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// DiscordIdentityProvider authenticates users against Discord with the identify scope
type DiscordIdentityProvider struct {
	oauth *oauth2.Config
}

// NewDiscordIdentityProvider creates a provider for the given application
func NewDiscordIdentityProvider(clientID, clientSecret, callbackURL string) *DiscordIdentityProvider {
	return &DiscordIdentityProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   discordgo.EndpointOAuth2 + "authorize",
				TokenURL:  discordgo.EndpointOAuth2 + "token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// AuthCodeURL returns the Discord consent page URL
func (p *DiscordIdentityProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

// Exchange trades the code for a token and looks up the user it belongs to
func (p *DiscordIdentityProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	session, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("discord returned a user without an id")
	}

	return &Identity{
		DiscordID:   user.ID,
		DisplayName: displayName(user),
	}, nil
}

func displayName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
