package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// IPInfo is what the backend knows about an address. Unknown fields are nil.
type IPInfo struct {
	AllocatedAt  *string `json:"allocated_at"`
	ASN          *string `json:"asn"`
	ASNCountry   *string `json:"asn_country"`
	City         *string `json:"city"`
	CountryLong  *string `json:"country_long"`
	CountryShort *string `json:"country_short"`
	Hostname     *string `json:"hostname"`
	IP           string  `json:"ip"`
	ISP          *string `json:"isp"`
	Latitude     *string `json:"latitude"`
	Longitude    *string `json:"longitude"`
	Region       *string `json:"region"`
	Registry     *string `json:"registry"`
	Timezone     *string `json:"timezone"`
	Zipcode      *string `json:"zipcode"`
}

// Field is a labelled IPInfo value.
type Field struct {
	Label string
	Value string
}

// Fields lists the known values in display order, skipping nil ones.
func (i IPInfo) Fields() []Field {
	all := []struct {
		label string
		value *string
	}{
		{"Hostname", i.Hostname},
		{"Country", i.CountryLong},
		{"Country code", i.CountryShort},
		{"Region", i.Region},
		{"City", i.City},
		{"Zipcode", i.Zipcode},
		{"Timezone", i.Timezone},
		{"Latitude", i.Latitude},
		{"Longitude", i.Longitude},
		{"ISP", i.ISP},
		{"ASN", i.ASN},
		{"ASN country", i.ASNCountry},
		{"Registry", i.Registry},
		{"Allocated at", i.AllocatedAt},
	}
	var fields []Field
	for _, f := range all {
		if f.value != nil && *f.value != "" {
			fields = append(fields, Field{Label: f.label, Value: *f.value})
		}
	}
	return fields
}

// EnrichIP looks up ip in the backend's address database.
func (c *Client) EnrichIP(ctx context.Context, ip string) (IPInfo, error) {
	body, err := c.postJSON(ctx, "/enrich_ip", struct {
		IP string `json:"ip"`
	}{ip})
	if err != nil {
		return IPInfo{}, backendError("enrich ip", body, err)
	}
	var info IPInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return IPInfo{}, fmt.Errorf("parse enrich ip response: %w", err)
	}
	return info, nil
}
