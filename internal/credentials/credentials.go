// Package credentials loads per-account venue credentials from a JSON
// file, matching the teacher's os.ReadFile + json.Unmarshal config
// loading style (domain/config.LoadAlexConfig).
package credentials

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/venue"
)

// Credentials satisfies internal/rest.Credentials.
type Credentials struct {
	name     string
	exchange venue.Exchange
	data     map[string]string
}

func (c *Credentials) Name() string            { return c.name }
func (c *Credentials) Exchange() venue.Exchange { return c.exchange }

func (c *Credentials) Get(key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

type rawAccount struct {
	Exchange   string `json:"exchange"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	CustomerID string `json:"customer_id,omitempty"`
}

// LoadFile reads the JSON credentials file and returns the named
// account, validated per spec.md §6: missing api_key/api_secret yields
// MissingField; a mismatched exchange yields InvalidConfigType.
func LoadFile(path, accountName string, wantExchange venue.Exchange) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	}

	var accounts map[string]rawAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, marketerr.New(marketerr.KindBadParse, err.Error())
	}

	account, ok := accounts[accountName]
	if !ok {
		return nil, marketerr.MissingField(accountName)
	}
	if account.APIKey == "" {
		return nil, marketerr.MissingField("api_key")
	}
	if account.APISecret == "" {
		return nil, marketerr.MissingField("api_secret")
	}

	exchange, ok := venue.ParseExchange(account.Exchange)
	if !ok {
		return nil, marketerr.New(marketerr.KindInvalidFieldValue, "exchange")
	}
	if exchange != wantExchange {
		return nil, marketerr.InvalidConfigType(string(wantExchange), string(exchange))
	}

	data := map[string]string{
		"api_key":    account.APIKey,
		"api_secret": account.APISecret,
	}
	if account.CustomerID != "" {
		data["customer_id"] = account.CustomerID
	}

	return &Credentials{name: accountName, exchange: exchange, data: data}, nil
}
