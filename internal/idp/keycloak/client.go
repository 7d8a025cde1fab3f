// Package keycloak implements the idp.Gateway against the Keycloak admin
// REST API. Admin tokens come from the client-credentials grant and are
// refreshed transparently by the oauth2 transport.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"identity-service/internal/idp"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type Client struct {
	baseURL string
	realm   string
	http    *http.Client
	log     *zap.Logger
}

// New builds the admin client. baseURL is the Keycloak server root, e.g.
// http://localhost:8081.
func New(
	ctx context.Context,
	baseURL string,
	realm string,
	clientID string,
	clientSecret string,
	timeout time.Duration,
	log *zap.Logger,
) (*Client, error) {

	if baseURL == "" || realm == "" || clientID == "" {
		return nil, errors.New("keycloak admin config missing required fields")
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/realms/" + realm + "/protocol/openid-connect/token",
	}

	// Bound every admin call, token refresh included.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := cc.Client(ctx)
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		realm:   realm,
		http:    httpClient,
		log:     log,
	}, nil
}

func (c *Client) adminURL(parts ...string) string {
	return c.baseURL + "/admin/realms/" + c.realm + "/" + strings.Join(parts, "/")
}

type userRepresentation struct {
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Enabled       bool            `json:"enabled"`
	EmailVerified bool            `json:"emailVerified"`
	Credentials   []credentialRep `json:"credentials,omitempty"`
}

type credentialRep struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) CreateAccount(ctx context.Context, acc idp.NewAccount) (string, error) {
	body, err := json.Marshal(userRepresentation{
		Username:      acc.Username,
		Email:         acc.Email,
		FirstName:     acc.FirstName,
		LastName:      acc.LastName,
		Enabled:       true,
		EmailVerified: true,
		Credentials: []credentialRep{{
			Type:      "password",
			Value:     acc.Password,
			Temporary: false,
		}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL("users"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak create user: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		location := resp.Header.Get("Location")
		subjectID := location[strings.LastIndex(location, "/")+1:]
		if subjectID == "" {
			return "", errors.New("keycloak create user: missing location header")
		}
		c.log.Info("keycloak user created",
			zap.String("username", acc.Username),
			zap.String("subject_id", subjectID),
		)
		return subjectID, nil
	case http.StatusConflict:
		return "", fmt.Errorf("%w: username %q", idp.ErrDuplicate, acc.Username)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("keycloak create user: status %d: %s", resp.StatusCode, msg)
	}
}

func (c *Client) DeleteAccount(ctx context.Context, subjectID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.adminURL("users", url.PathEscape(subjectID)), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak delete user: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		c.log.Info("keycloak user deleted", zap.String("subject_id", subjectID))
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: subject %q", idp.ErrNotFound, subjectID)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("keycloak delete user: status %d: %s", resp.StatusCode, msg)
	}
}

func (c *Client) UsernameExists(ctx context.Context, username string) (bool, error) {
	endpoint := c.adminURL("users") + "?exact=true&username=" + url.QueryEscape(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("keycloak search user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("keycloak search user: status %d: %s", resp.StatusCode, msg)
	}

	var users []userRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return false, fmt.Errorf("keycloak search user: decode: %w", err)
	}

	return len(users) > 0, nil
}

func (c *Client) AssignRealmRole(ctx context.Context, subjectID, role string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminURL("roles", url.PathEscape(role)), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak get role: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Realm not seeded with the role; account still works without it.
		c.log.Warn("keycloak role not found", zap.String("role", role))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("keycloak get role: status %d: %s", resp.StatusCode, msg)
	}

	var rep roleRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return fmt.Errorf("keycloak get role: decode: %w", err)
	}

	body, err := json.Marshal([]roleRepresentation{rep})
	if err != nil {
		return err
	}

	assign, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.adminURL("users", url.PathEscape(subjectID), "role-mappings", "realm"),
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	assign.Header.Set("Content-Type", "application/json")

	assignResp, err := c.http.Do(assign)
	if err != nil {
		return fmt.Errorf("keycloak assign role: %w", err)
	}
	defer assignResp.Body.Close()

	if assignResp.StatusCode != http.StatusNoContent && assignResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(assignResp.Body, 4096))
		return fmt.Errorf("keycloak assign role: status %d: %s", assignResp.StatusCode, msg)
	}

	return nil
}
