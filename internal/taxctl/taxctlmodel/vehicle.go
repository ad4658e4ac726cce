// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlmodel

// Vehicle is an investment vehicle (a Security or an Account) that can receive
// weighted classification Assignments.
type Vehicle interface {
	// ID returns the stable id of the vehicle.
	ID() string
	// Name returns the display name of the vehicle.
	Name() string

	isVehicle()
}

// Security is a tradeable instrument identified by name, ISIN, ticker, and WKN.
type Security struct {
	id     string
	name   string
	isin   string
	ticker string
	wkn    string
}

// NewSecurity creates a new Security.
func NewSecurity(id, name, isin, ticker, wkn string) *Security {
	return &Security{
		id:     id,
		name:   name,
		isin:   isin,
		ticker: ticker,
		wkn:    wkn,
	}
}

// ID returns the stable id of the Security.
func (s *Security) ID() string { return s.id }

// Name returns the display name of the Security.
func (s *Security) Name() string { return s.name }

// ISIN returns the International Securities Identification Number, or empty.
func (s *Security) ISIN() string { return s.isin }

// Ticker returns the ticker symbol, or empty.
func (s *Security) Ticker() string { return s.ticker }

// WKN returns the German Wertpapierkennnummer, or empty.
func (s *Security) WKN() string { return s.wkn }

func (*Security) isVehicle() {}

// Account is a cash account identified by name only.
type Account struct {
	id   string
	name string
}

// NewAccount creates a new Account.
func NewAccount(id, name string) *Account {
	return &Account{
		id:   id,
		name: name,
	}
}

// ID returns the stable id of the Account.
func (a *Account) ID() string { return a.id }

// Name returns the display name of the Account.
func (a *Account) Name() string { return a.name }

func (*Account) isVehicle() {}

// Client holds the securities and accounts known to a portfolio, in a stable order.
type Client struct {
	securities []*Security
	accounts   []*Account
	byID       map[string]Vehicle
}

// NewClient creates a new Client from the given securities and accounts.
func NewClient(securities []*Security, accounts []*Account) *Client {
	byID := make(map[string]Vehicle, len(securities)+len(accounts))
	for _, security := range securities {
		byID[security.ID()] = security
	}
	for _, account := range accounts {
		byID[account.ID()] = account
	}
	return &Client{
		securities: securities,
		accounts:   accounts,
		byID:       byID,
	}
}

// Securities returns all securities.
func (c *Client) Securities() []*Security {
	return c.securities
}

// Accounts returns all accounts.
func (c *Client) Accounts() []*Account {
	return c.accounts
}

// Vehicles returns all securities followed by all accounts.
func (c *Client) Vehicles() []Vehicle {
	vehicles := make([]Vehicle, 0, len(c.securities)+len(c.accounts))
	for _, security := range c.securities {
		vehicles = append(vehicles, security)
	}
	for _, account := range c.accounts {
		vehicles = append(vehicles, account)
	}
	return vehicles
}

// VehicleByID returns the vehicle with the given id, or nil.
func (c *Client) VehicleByID(id string) Vehicle {
	return c.byID[id]
}
