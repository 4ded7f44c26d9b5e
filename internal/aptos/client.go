// Package aptos reads health profiles from an Aptos fullnode through the
// profile module's view function.
package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

const (
	profileFunction = "health_profile::get_profile"

	msgNotFound     = "Profile not found for this wallet"
	msgAccessDenied = "Profile access denied"
)

// Config holds fullnode connection settings.
type Config struct {
	NodeURL       string
	ModuleAddress string
	APIKey        string
	Timeout       time.Duration
}

// Client calls the fullnode REST API.
type Client struct {
	baseURL  string
	function string
	apiKey   string
	http     *http.Client
}

// NewClient creates a fullnode client. NodeURL includes the API version
// prefix, e.g. https://fullnode.testnet.aptoslabs.com/v1.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.NodeURL, "/"),
		function: cfg.ModuleAddress + "::" + profileFunction,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

var _ profile.Fetcher = (*Client)(nil)

// FetchProfile calls the profile view function for the wallet's address.
// Node-side rejections come back as an unsuccessful Response; transport and
// decoding failures are returned as errors.
func (c *Client) FetchProfile(ctx context.Context, w wallet.Record) (profile.Response, error) {
	payload, err := json.Marshal(viewRequest{
		Function:      c.function,
		TypeArguments: []string{},
		Arguments:     []string{w.Address},
	})
	if err != nil {
		return profile.Response{}, fmt.Errorf("fetch profile: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/view", bytes.NewReader(payload))
	if err != nil {
		return profile.Response{}, fmt.Errorf("fetch profile: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return profile.Response{}, fmt.Errorf("fetch profile: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return profile.Response{}, fmt.Errorf("fetch profile: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return profile.Response{}, &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return profile.Response{Error: apiErr.userMessage()}, nil
	}

	p, err := decodeProfile(body)
	if err != nil {
		return profile.Response{}, fmt.Errorf("fetch profile: %w", err)
	}

	return profile.Response{Success: true, Profile: p}, nil
}

func decodeProfile(body []byte) (*profile.HealthProfile, error) {
	var values []json.RawMessage
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("unmarshal view result: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("view returned no values")
	}

	var mp moveProfile
	if err := json.Unmarshal(values[0], &mp); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	age, err := strconv.Atoi(mp.Age.String())
	if err != nil {
		return nil, fmt.Errorf("profile age %q: %w", mp.Age, err)
	}

	conditions := mp.ChronicCondition
	if conditions == nil {
		conditions = []string{}
	}

	return &profile.HealthProfile{
		Name:                 mp.Name,
		Age:                  age,
		Gender:               mp.Gender,
		Location:             mp.Location,
		ChronicCondition:     conditions,
		PreferredWalkTime:    mp.PreferredWalkTime.value(),
		PollutionSensitivity: mp.PollutionSensitivity.value(),
	}, nil
}

// Error is a fullnode failure without a structured body.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("aptos: %s (status %d)", e.Message, e.StatusCode)
}

// json wire types

type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

type moveProfile struct {
	Name                 string      `json:"name"`
	Age                  json.Number `json:"age"`
	Gender               string      `json:"gender"`
	Location             string      `json:"location"`
	ChronicCondition     []string    `json:"chronic_condition"`
	PreferredWalkTime    moveOption  `json:"preferred_walk_time"`
	PollutionSensitivity moveOption  `json:"pollution_sensitivity"`
}

// moveOption is the JSON form of a Move Option<String>: {"vec": []} or {"vec": ["x"]}.
type moveOption struct {
	Vec []string `json:"vec"`
}

func (o moveOption) value() string {
	if len(o.Vec) == 0 {
		return ""
	}
	return o.Vec[0]
}

type apiErrorResponse struct {
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	VMErrorCode int    `json:"vm_error_code"`
}

// userMessage maps Move aborts raised by the profile module onto the
// messages the dashboard understands; anything else passes through.
func (e apiErrorResponse) userMessage() string {
	upper := strings.ToUpper(e.Message)
	switch {
	case strings.Contains(upper, "E_PROFILE_NOT_FOUND"),
		e.ErrorCode == "resource_not_found",
		e.ErrorCode == "account_not_found":
		return msgNotFound
	case strings.Contains(upper, "E_ACCESS_DENIED"),
		strings.Contains(upper, "E_NOT_AUTHORIZED"):
		return msgAccessDenied
	}
	return e.Message
}
