// Package story fetches pre-generated story bundles from the story API.
package story

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"storykit/core"

	"github.com/bytedance/sonic"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ErrNoStories is returned when the collaborator has no dates to offer.
var ErrNoStories = fmt.Errorf("story: no stories available")

// NetworkError tags transport failures and non-success statuses so callers
// receive a tagged result instead of an unhandled fault.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("story: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("story: %s: status %d", e.Op, e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Loader fetches the list of available dates and the scene/character bundle
// for the most recent one. Results are cached per date; concurrent loads are
// collapsed into a single upstream request.
type Loader struct {
	baseURL    string
	httpClient core.HTTPDoer
	cache      *gocache.Cache
	group      singleflight.Group
	logger     *core.Logger
}

func NewLoader(baseURL string, httpClient core.HTTPDoer, logger *core.Logger) *Loader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Loader{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      gocache.New(10*time.Minute, 30*time.Minute),
		logger:     logger.With(map[string]interface{}{"component": "story_loader"}),
	}
}

// LoadLatest fetches the story bundle for the most recent available date.
// The collaborator returns dates most-recent-first; the first entry is taken
// as the latest without re-sorting.
func (l *Loader) LoadLatest(ctx context.Context) (*core.StoryData, error) {
	v, err, _ := l.group.Do("latest", func() (interface{}, error) {
		dates, err := l.fetchDates(ctx)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, ErrNoStories
		}

		date := dates[0]
		if cached, ok := l.cache.Get(date); ok {
			return cached.(*core.StoryData), nil
		}

		data, err := l.fetchStoryData(ctx, date)
		if err != nil {
			return nil, err
		}
		l.cache.SetDefault(date, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.StoryData), nil
}

func (l *Loader) fetchDates(ctx context.Context) ([]string, error) {
	body, err := l.get(ctx, l.baseURL+"/story/dates", "fetch dates")
	if err != nil {
		return nil, err
	}

	var dates []string
	if err := sonic.Unmarshal(body, &dates); err != nil {
		return nil, &NetworkError{Op: "parse dates", Err: err}
	}
	return dates, nil
}

func (l *Loader) fetchStoryData(ctx context.Context, date string) (*core.StoryData, error) {
	url := fmt.Sprintf("%s/story/scenes/date/%s?latest_only=true", l.baseURL, date)
	body, err := l.get(ctx, url, "fetch story data")
	if err != nil {
		return nil, err
	}

	var data core.StoryData
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, &NetworkError{Op: "parse story data", Err: err}
	}
	if data.Date == "" {
		data.Date = date
	}
	l.logger.Infof("loaded story data for %s: %d characters, %d scenes", date, len(data.Characters), len(data.Scenes))
	return &data, nil
}

func (l *Loader) get(ctx context.Context, url string, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return body, nil
}
