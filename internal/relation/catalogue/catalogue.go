// Package catalogue implements the consumer side of the catalogue v1 relation and
// the ReductStore catalogue entry.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/relation"
	"github.com/reductstore/reductstore-operator/internal/urls"
)

// Endpoint labels.
const (
	EndpointUI         = "UI"
	EndpointRESTAPI    = "REST API"
	EndpointServerInfo = "Server Info"
)

// Item is one catalogue entry.
type Item struct {
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Icon         string            `json:"icon"`
	Description  string            `json:"description"`
	APIDocs      string            `json:"api_docs"`
	APIEndpoints map[string]string `json:"api_endpoints"`
}

// NewItem builds the ReductStore entry from the derived external URLs. Empty URLs
// leave the display URL empty and omit their endpoints.
func NewItem(apiURL, uiURL string) Item {
	endpoints := map[string]string{}
	if uiURL != "" {
		endpoints[EndpointUI] = uiURL
	}
	if apiURL != "" {
		endpoints[EndpointRESTAPI] = apiURL
		endpoints[EndpointServerInfo] = urls.InfoURL(apiURL)
	}
	return Item{
		Name:         constants.CatalogueName,
		URL:          uiURL,
		Icon:         constants.CatalogueIcon,
		Description:  constants.CatalogueDescription,
		APIDocs:      constants.CatalogueAPIDocs,
		APIEndpoints: endpoints,
	}
}

// ItemFor derives the entry from the stored ingress URL and the API base path.
func ItemFor(ingressURL, basePath string) Item {
	return NewItem(urls.ExternalAPIURL(ingressURL, basePath), urls.ExternalUIURL(ingressURL, basePath))
}

// Databag renders the item as catalogue v1 application data.
func (i Item) Databag() (map[string]string, error) {
	endpoints, err := json.Marshal(i.APIEndpoints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalogue endpoints: %w", err)
	}
	return map[string]string{
		"name":          i.Name,
		"url":           i.URL,
		"icon":          i.Icon,
		"description":   i.Description,
		"api_docs":      i.APIDocs,
		"api_endpoints": string(endpoints),
	}, nil
}

// Consumer publishes the item on every catalogue relation.
type Consumer struct {
	Databags relation.Databags
	Leader   relation.Leadership
	Log      logr.Logger
}

// Publish writes item to all catalogue relations. Non-leaders do nothing.
func (c *Consumer) Publish(ctx context.Context, item Item) error {
	ids, err := c.Databags.RelationIDs(ctx, constants.RelationCatalogue)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	leader, err := c.Leader.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		return nil
	}

	data, err := item.Databag()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.Databags.RelationSet(ctx, id, true, data); err != nil {
			return err
		}
	}
	c.Log.V(1).Info("Published catalogue item", "url", item.URL, "endpoints", len(item.APIEndpoints), "relations", len(ids))
	return nil
}
