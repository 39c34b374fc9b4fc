// Package client talks to the wider network: the PLC directory for
// identity resolution, PDS hosts for repo reads, and the relay for
// collection membership. Results that rarely change are cached.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/skymirror/skymirror/internal/domain"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	client       *http.Client
	cache        *cache.Cache
	plcDirectory string
	relay        string
	userAgent    string
}

func New(plcDirectory, relay string) *Client {
	return &Client{
		client:       &http.Client{Timeout: defaultTimeout},
		cache:        cache.New(10*time.Minute, 15*time.Minute),
		plcDirectory: plcDirectory,
		relay:        relay,
		userAgent:    "skymirror",
	}
}

type didDocument struct {
	ID          string   `json:"id"`
	AlsoKnownAs []string `json:"alsoKnownAs"`
	Service     []struct {
		ID              string `json:"id"`
		Type            string `json:"type"`
		ServiceEndpoint string `json:"serviceEndpoint"`
	} `json:"service"`
}

// ResolveIdentity looks up a DID's handle and PDS endpoint through the
// PLC directory, with a TTL cache in front.
func (c *Client) ResolveIdentity(ctx context.Context, did string) (domain.Identity, error) {
	cacheKey := "identity:" + did
	if x, found := c.cache.Get(cacheKey); found {
		return x.(domain.Identity), nil
	}

	var doc didDocument
	if err := c.getJSON(ctx, c.plcDirectory+"/"+url.PathEscape(did), &doc); err != nil {
		return domain.Identity{}, fmt.Errorf("failed to resolve did %s: %v", did, err)
	}

	identity := domain.Identity{DID: did}
	for _, aka := range doc.AlsoKnownAs {
		if handle, ok := strings.CutPrefix(aka, "at://"); ok {
			identity.Handle = handle
			break
		}
	}
	for _, svc := range doc.Service {
		if svc.Type == "AtprotoPersonalDataServer" {
			identity.PDS = svc.ServiceEndpoint
			break
		}
	}
	if identity.PDS == "" {
		return domain.Identity{}, fmt.Errorf("no pds endpoint in did document for %s", did)
	}

	c.cache.Set(cacheKey, identity, cache.DefaultExpiration)
	return identity, nil
}

// ResolveLabelerEndpoint finds the labeler service endpoint in a DID
// document and rewrites it to a websocket URL.
func (c *Client) ResolveLabelerEndpoint(ctx context.Context, did string) (string, error) {
	var doc didDocument
	if err := c.getJSON(ctx, c.plcDirectory+"/"+url.PathEscape(did), &doc); err != nil {
		return "", fmt.Errorf("failed to resolve did %s: %v", did, err)
	}
	for _, svc := range doc.Service {
		if svc.Type == "AtprotoLabeler" {
			return strings.Replace(svc.ServiceEndpoint, "https://", "wss://", 1), nil
		}
	}
	return "", fmt.Errorf("no labeler service for %s", did)
}

type listRecordsResponse struct {
	Records []domain.RemoteRecord `json:"records"`
	Cursor  string                `json:"cursor"`
}

// ListRecords pages through every record of a repo collection.
func (c *Client) ListRecords(ctx context.Context, pds, repo, collection string) ([]domain.RemoteRecord, error) {
	var records []domain.RemoteRecord
	cursor := ""

	for {
		params := url.Values{}
		params.Set("repo", repo)
		params.Set("collection", collection)
		params.Set("limit", "100")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page listRecordsResponse
		endpoint := pds + "/xrpc/com.atproto.repo.listRecords?" + params.Encode()
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("failed to list records for %s/%s: %v", repo, collection, err)
		}

		records = append(records, page.Records...)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return records, nil
}

// GetRecord fetches a single record from its owner's PDS.
func (c *Client) GetRecord(ctx context.Context, pds, repo, collection, rkey string) (domain.RemoteRecord, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", collection)
	params.Set("rkey", rkey)

	var record domain.RemoteRecord
	endpoint := pds + "/xrpc/com.atproto.repo.getRecord?" + params.Encode()
	if err := c.getJSON(ctx, endpoint, &record); err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("failed to get record %s/%s/%s: %v", repo, collection, rkey, err)
	}
	return record, nil
}

type listReposResponse struct {
	Repos []struct {
		DID string `json:"did"`
	} `json:"repos"`
	Cursor string `json:"cursor"`
}

// ListReposByCollection asks the relay which repos hold records of a
// collection.
func (c *Client) ListReposByCollection(ctx context.Context, collection string) ([]string, error) {
	var dids []string
	cursor := ""

	for {
		params := url.Values{}
		params.Set("collection", collection)
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page listReposResponse
		endpoint := c.relay + "/xrpc/com.atproto.sync.listReposByCollection?" + params.Encode()
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("failed to list repos for %s: %v", collection, err)
		}

		for _, repo := range page.Repos {
			dids = append(dids, repo.DID)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return dids, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}
