// Package srcapi contains minimal helpers to interact with the speedrun.com v1 API
// for listing the pending-run queue and fetching single run details.
package srcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const userAgent = "src-herald/1.0"

// Run is a snapshot of a submission as it exists on speedrun.com at fetch time.
// Status holds the raw remote status word; callers map it to their own enum.
type Run struct {
	ID       string
	Category string
	Platform string
	Emulated bool
	Player   string
	TimeSec  float64
	Date     string
	Weblink  string
	Status   string
}

// Client provides the methods needed for queue discovery and status refresh.
type Client struct {
	BaseURL    string
	GameID     string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://www.speedrun.com/api/v1"
}

// ListPendingRuns fetches one page of runs awaiting moderation for the configured game.
// Only the first page is requested; the moderation queue is not expected to exceed it.
func (c *Client) ListPendingRuns(ctx context.Context) ([]Run, error) {
	if c.GameID == "" {
		return nil, fmt.Errorf("game id empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/runs", nil)
	q := req.URL.Query()
	q.Set("game", c.GameID)
	q.Set("status", "new")
	q.Set("max", "100")
	q.Set("embed", "category,platform,players")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list runs: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Data []runPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(body.Data))
	for i := range body.Data {
		out = append(out, body.Data[i].toRun())
	}
	return out, nil
}

// GetRun fetches a single run by id. A 404 from the service means the run was
// deleted upstream; that case returns (nil, nil) so callers can tell deletion
// apart from transport failure.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run id empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/runs/"+id, nil)
	q := req.URL.Query()
	q.Set("embed", "category,platform,players")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get run %s: unexpected status %d", id, resp.StatusCode)
	}
	var body struct {
		Data runPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	run := body.Data.toRun()
	return &run, nil
}

// runPayload mirrors the wire shape with category/platform/players embeds.
type runPayload struct {
	ID      string `json:"id"`
	Weblink string `json:"weblink"`
	Date    string `json:"date"`
	Status  struct {
		Status string `json:"status"`
	} `json:"status"`
	Times struct {
		PrimaryT float64 `json:"primary_t"`
	} `json:"times"`
	System struct {
		Emulated bool `json:"emulated"`
	} `json:"system"`
	Category struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"category"`
	Platform struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"platform"`
	Players struct {
		Data []struct {
			Rel   string `json:"rel"`
			Name  string `json:"name"`
			Names struct {
				International string `json:"international"`
			} `json:"names"`
		} `json:"data"`
	} `json:"players"`
}

func (p *runPayload) toRun() Run {
	r := Run{
		ID:       p.ID,
		Weblink:  p.Weblink,
		Date:     p.Date,
		Status:   p.Status.Status,
		TimeSec:  p.Times.PrimaryT,
		Emulated: p.System.Emulated,
		Category: p.Category.Data.Name,
		Platform: p.Platform.Data.Name,
	}
	if r.Category == "" {
		r.Category = "Unknown Category"
	}
	if r.Platform == "" {
		r.Platform = "Unknown Platform"
	}
	if r.Date == "" {
		r.Date = "Unknown"
	}
	// Registered users carry names.international; guests only have a flat name.
	r.Player = "Unknown Player"
	if len(p.Players.Data) > 0 {
		first := p.Players.Data[0]
		switch {
		case first.Names.International != "":
			r.Player = first.Names.International
		case first.Name != "":
			r.Player = first.Name
		}
	}
	return r
}
