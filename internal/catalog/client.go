package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	golangjwt "github.com/golang-jwt/jwt/v5"
	"github.com/obsctl/obsctl/pkg/log"
)

// Client is the HTTP client for the job-catalog service. Operations
// consumed: get_jobs, get_job, submit_job, update_job, add_frame,
// get_latest, per spec section 6.
type Client struct {
	client  http.Client
	baseURL string
	bearer  string
}

// New creates a catalog client. If username/password are non-empty a
// bearer credential is minted via golang-jwt and attached to every
// request, matching the Bearer-header pattern internal/metricstoreclient
// uses against cc-metric-store.
func New(baseURL, username, password string) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		client:  http.Client{Timeout: 10 * time.Second},
	}
	if username != "" {
		tok, err := mintBearer(username, password)
		if err != nil {
			return nil, fmt.Errorf("catalog: mint bearer: %w", err)
		}
		c.bearer = tok
	}
	return c, nil
}

// mintBearer builds a short-lived HS256 JWT carrying the operator's
// username as subject; password is used as the signing secret for the
// single-operator, single-session control model described in spec
// section 1 (no multi-user session store exists to check it against).
func mintBearer(username, password string) (string, error) {
	claims := golangjwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	tok := golangjwt.NewWithClaims(golangjwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(password))
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("catalog: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: request %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("catalog: %s %s: HTTP %s", method, path, res.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(bufio.NewReader(res.Body)).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	return nil
}

// GetJobs fetches jobs matching filter, sorted descending by
// (priority, jd_end), per spec section 4.4 intake.
func (c *Client) GetJobs(ctx context.Context, filter map[string]string) ([]Job, error) {
	path := "/api/jobs?sort=-priority,-jd_end"
	for k, v := range filter {
		path += fmt.Sprintf("&%s=%s", k, v)
	}
	var jobs []Job
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob fetches a single job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.doRequest(ctx, http.MethodGet, "/api/jobs/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// SubmitJob creates a new job document.
func (c *Client) SubmitJob(ctx context.Context, job *Job) (*Job, error) {
	var created Job
	if err := c.doRequest(ctx, http.MethodPost, "/api/jobs", job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateJob is the single choke point for catalog mutations; it
// serializes enum fields by their string name, per spec section 4.4.
func (c *Client) UpdateJob(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := c.doRequest(ctx, http.MethodPatch, "/api/jobs/"+id, fields, nil); err != nil {
		log.Warnf("catalog: update_job(%s) failed, will retry next sweep: %v", id, err)
		return err
	}
	return nil
}

// GetLatest fetches the job matching filter with the latest jd_start.
// Exposed for completeness; nothing in this module calls it. Supplements
// spec.md (named in section 3/6 but unused by the distillation).
func (c *Client) GetLatest(ctx context.Context, filter map[string]string) (*Job, error) {
	path := "/api/jobs?sort=-jd_start&limit=1"
	for k, v := range filter {
		path += fmt.Sprintf("&%s=%s", k, v)
	}
	var jobs []Job
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("catalog: no jobs match filter")
	}
	return &jobs[0], nil
}

// AddFrame gzip-compresses the FITS bytes in memory and uploads them as
// frame.fits.gz alongside jd_obs derived from the frame's DATE-OBS
// header, per spec section 6. The caller supplies jdObs already derived
// (internal/fitsio.Header.DateObs + internal/astro.JulianDateUTC) so this
// client stays a pure HTTP transport.
func (c *Client) AddFrame(ctx context.Context, jobID string, frame []byte, jdObs float64) error {
	gz, err := gzipBytes(frame)
	if err != nil {
		return fmt.Errorf("catalog: gzip frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs/"+jobID+"/frame", bytes.NewReader(gz))
	if err != nil {
		return fmt.Errorf("catalog: build add_frame request: %w", err)
	}
	req.Header.Set("Content-Type", "application/gzip")
	req.Header.Set("X-Frame-Filename", "frame.fits.gz")
	req.Header.Set("X-JD-Obs", fmt.Sprintf("%.6f", jdObs))
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: add_frame(%s): %w", jobID, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("catalog: add_frame(%s): HTTP %s", jobID, res.Status)
	}
	return nil
}
