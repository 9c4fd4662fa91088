package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/models"
)

// ErrTweetNotFound 推文已删除或账号被封禁
var ErrTweetNotFound = errors.New("tweet not found")

// syndication 接口只接受嵌入式推文的请求来源
const (
	syndicationUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	syndicationOrigin    = "https://platform.twitter.com"
)

// Tweet 推文正文及形式
type Tweet struct {
	Text   string
	Format string
}

// TweetFetcher 按推文 ID 获取推文
type TweetFetcher interface {
	Fetch(ctx context.Context, tweetID int64) (*Tweet, error)
}

type syndicationResponse struct {
	Text   string            `json:"text"`
	Video  json.RawMessage   `json:"video"`
	Photos []json.RawMessage `json:"photos"`
}

// SyndicationClient 调用 cdn.syndication.twimg.com/tweet-result
type SyndicationClient struct {
	client  *http.Client
	baseURL string
}

func NewSyndicationClient(cfg config.EnrichConfig) *SyndicationClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SyndicationClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.SyndicationURL, "/"),
	}
}

func (c *SyndicationClient) Fetch(ctx context.Context, tweetID int64) (*Tweet, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(tweetID, 10))
	q.Set("token", "x")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", syndicationUserAgent)
	req.Header.Set("Origin", syndicationOrigin)
	req.Header.Set("Referer", syndicationOrigin+"/")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTweetNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tweet %d: unexpected status %d", tweetID, resp.StatusCode)
	}

	var body syndicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tweet %d: invalid response: %w", tweetID, err)
	}
	return &Tweet{Text: body.Text, Format: body.format()}, nil
}

func (r syndicationResponse) format() string {
	switch {
	case len(r.Video) > 0 && string(r.Video) != "null":
		return models.TweetFormatVideo
	case len(r.Photos) > 0:
		return models.TweetFormatPhoto
	default:
		return models.TweetFormatText
	}
}
