// Package profile fetches customer contact data from the external profile
// directory.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/models"
)

// Client represents HTTP client for profile directory requests
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates new Client instance
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type profileResponse struct {
	ID               uuid.UUID `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	ZipCode          string    `json:"zip_code"`
	City             string    `json:"city"`
	Language         string    `json:"language"`
	OrganizationType string    `json:"organization_type"`
}

// GetAllProfiles returns the profiles of the requested customers keyed by
// id. An id absent from the result is a valid outcome, not an error.
func (c *Client) GetAllProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.CustomerProfile, error) {
	// POST /profiles/query
	u, err := url.JoinPath(c.baseURL, "profiles", "query")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string][]uuid.UUID{"ids": ids})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile directory answered %d", resp.StatusCode)
	}

	var decoded []profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	profiles := make(map[uuid.UUID]models.CustomerProfile, len(decoded))
	for _, p := range decoded {
		profiles[p.ID] = models.CustomerProfile{
			ID:               p.ID,
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			Email:            p.Email,
			Phone:            p.Phone,
			Address:          p.Address,
			ZipCode:          p.ZipCode,
			City:             p.City,
			Language:         p.Language,
			OrganizationType: models.OrganizationType(p.OrganizationType),
		}
	}

	return profiles, nil
}
