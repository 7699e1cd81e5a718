package fitapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"example.com/fitsync/internal/domain"
)

// Client issues history reads against the fitness REST API. Calls are never
// retried; each one gets its own timeout.
type Client struct {
	http    *resty.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient constructs a Client. token is sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc, timeout: timeout, logger: logger}
}

type aggregateRequest struct {
	AggregateBy             []AggregateBy    `json:"aggregateBy"`
	BucketByTime            *bucketByTime    `json:"bucketByTime,omitempty"`
	BucketByActivitySegment *bucketBySegment `json:"bucketByActivitySegment,omitempty"`
	StartTimeMillis         int64            `json:"startTimeMillis"`
	EndTimeMillis           int64            `json:"endTimeMillis"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

type bucketBySegment struct {
	MinDurationMillis int64 `json:"minDurationMillis"`
}

// Read executes the request and decodes the response.
func (c *Client) Read(ctx context.Context, req Request) (ReadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	result, err := c.read(ctx, req)
	recordCall(req.Name, err, time.Since(started))
	if err != nil {
		c.logger.Warn("fitness api read failed",
			zap.String("query", req.Name),
			zap.Time("start", req.Start),
			zap.Time("end", req.End),
			zap.Error(err),
		)
		return ReadResult{}, err
	}
	c.logger.Debug("fitness api read",
		zap.String("query", req.Name),
		zap.Int("buckets", len(result.Buckets)),
		zap.Int("datasets", len(result.DataSets)),
	)
	return result, nil
}

func (c *Client) read(ctx context.Context, req Request) (ReadResult, error) {
	if req.Bucketed() {
		body := aggregateRequest{
			AggregateBy:     req.Aggregate,
			StartTimeMillis: req.Start.UnixMilli(),
			EndTimeMillis:   req.End.UnixMilli(),
		}
		if req.BucketByTime > 0 {
			body.BucketByTime = &bucketByTime{DurationMillis: req.BucketByTime.Milliseconds()}
		}
		if req.BucketByActivitySegment > 0 {
			body.BucketByActivitySegment = &bucketBySegment{MinDurationMillis: req.BucketByActivitySegment.Milliseconds()}
		}

		resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/users/me/dataset:aggregate")
		raw, err := checkResponse(ctx, req.Name, resp, err)
		if err != nil {
			return ReadResult{}, err
		}
		var decoded aggregateResponse
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return ReadResult{}, fmt.Errorf("%w: %s: decode: %v", domain.ErrRemoteCall, req.Name, err)
		}
		return ReadResult{Buckets: decoded.Buckets}, nil
	}

	datasetID := strconv.FormatInt(req.Start.UnixNano(), 10) + "-" + strconv.FormatInt(req.End.UnixNano(), 10)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"dataSourceId": req.DataSourceID,
			"datasetId":    datasetID,
		}).
		Get("/users/me/dataSources/{dataSourceId}/datasets/{datasetId}")
	raw, err := checkResponse(ctx, req.Name, resp, err)
	if err != nil {
		return ReadResult{}, err
	}
	var decoded datasetResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ReadResult{}, fmt.Errorf("%w: %s: decode: %v", domain.ErrRemoteCall, req.Name, err)
	}
	return ReadResult{DataSets: []DataSet{{DataSourceID: decoded.DataSourceID, Points: decoded.Points}}}, nil
}

func checkResponse(ctx context.Context, name string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRemoteCallTimeout, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRemoteCall, name, err)
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d: %s", domain.ErrRemoteCall, name, resp.StatusCode(), truncate(resp.String(), 256))
	}
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: %s: empty response", domain.ErrRemoteCall, name)
	}
	return body, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
