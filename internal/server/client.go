package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/grantd/grantd/internal/grant"
)

// Client talks to a running daemon over its unix socket.
type Client struct {
	socketPath string
	token      string
	http       *http.Client
}

func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
		},
	}
}

// SetToken attaches a session JWT to every request.
func (c *Client) SetToken(token string) { c.token = token }

// OpenSession trades the admin token for a session JWT.
func (c *Client) OpenSession(adminToken, caller string) (string, error) {
	body, _ := json.Marshal(sessionRequest{Token: adminToken, Caller: caller})
	resp, err := c.post("/session", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return "", err
	}
	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	c.token = sr.Token
	return sr.Token, nil
}

func (c *Client) RoleAvailability(role, user string) (bool, error) {
	resp, err := c.get("/roles/" + url.PathEscape(role) + "/availability?user=" + url.QueryEscape(user))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return false, err
	}
	var ar availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return false, fmt.Errorf("decode availability: %w", err)
	}
	return ar.Available, nil
}

func (c *Client) GetGrant(sub grant.Subject) (*grant.Snapshot, *grant.Detail, *grant.AdminInfo, error) {
	resp, err := c.get(subjectPath(sub, ""))
	if err != nil {
		return nil, nil, nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, nil, nil, err
	}
	var gr GrantListing
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, nil, nil, fmt.Errorf("decode grant: %w", err)
	}
	return gr.Snapshot, gr.Detail, gr.Admin, nil
}

// RequestChange posts one change request for a subject.
func (c *Client) RequestChange(sub grant.Subject, req grant.Request) error {
	body, _ := json.Marshal(changeRequest{
		Grant:     req.Grant,
		UserFixed: req.UserFixed,
		Target:    string(req.Target),
	})
	resp, err := c.post(subjectPath(sub, "/change"), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, http.StatusAccepted)
}

// ListGrantsForApp fetches every permission group recorded for an app.
func (c *Client) ListGrantsForApp(app, user string) ([]GrantListing, error) {
	return c.listGrants("/apps/" + url.PathEscape(app) + "/grants?user=" + url.QueryEscape(user))
}

// ListGrantsForGroup fetches every app recorded for a permission group.
func (c *Client) ListGrantsForGroup(group, user string) ([]GrantListing, error) {
	return c.listGrants("/groups/" + url.PathEscape(group) + "/grants?user=" + url.QueryEscape(user))
}

func (c *Client) listGrants(path string) ([]GrantListing, error) {
	resp, err := c.get(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var out []GrantListing
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode grants: %w", err)
	}
	return out, nil
}

func (c *Client) Audit(sub grant.Subject) ([]auditResponse, error) {
	resp, err := c.get(subjectPath(sub, "/audit"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var out []auditResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode audit: %w", err)
	}
	return out, nil
}

// Token returns the session JWT, if one was opened.
func (c *Client) Token() string { return c.token }

func subjectPath(sub grant.Subject, suffix string) string {
	return "/grants/" + url.PathEscape(sub.App) + "/" + url.PathEscape(sub.Group) +
		suffix + "?user=" + url.QueryEscape(sub.User)
}

func (c *Client) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", "http://unix"+path, nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	return c.http.Do(req)
}

func (c *Client) post(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest("POST", "http://unix"+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	return c.http.Do(req)
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("daemon: %s", e.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode)
}
