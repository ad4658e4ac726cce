// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlresolve resolves instrument identifier bundles to the investment
// vehicles known to a portfolio.
//
// Identifier kinds are tried in fixed priority order: ISIN, ticker, WKN, then name.
// The first kind that yields at least one match wins and lower-priority kinds are
// not consulted. Name matching also searches accounts when no security matches.
package taxctlresolve

import (
	"strings"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
)

// Client enumerates the vehicles that identifiers are resolved against.
type Client interface {
	// Securities returns all securities.
	Securities() []*taxctlmodel.Security
	// Accounts returns all accounts.
	Accounts() []*taxctlmodel.Account
}

// Identifiers is an identifier bundle. Blank values are treated as absent.
type Identifiers struct {
	Name   string
	ISIN   string
	WKN    string
	Ticker string
}

// IdentifierKind is the kind of identifier that produced a match.
type IdentifierKind int

const (
	// IdentifierKindNone indicates that nothing matched.
	IdentifierKindNone IdentifierKind = iota
	// IdentifierKindISIN indicates a match by ISIN.
	IdentifierKindISIN
	// IdentifierKindTicker indicates a match by ticker symbol.
	IdentifierKindTicker
	// IdentifierKindWKN indicates a match by WKN.
	IdentifierKindWKN
	// IdentifierKindName indicates a match by name.
	IdentifierKindName
)

// String implements fmt.Stringer.
func (k IdentifierKind) String() string {
	switch k {
	case IdentifierKindISIN:
		return "isin"
	case IdentifierKindTicker:
		return "ticker"
	case IdentifierKindWKN:
		return "wkn"
	case IdentifierKindName:
		return "name"
	default:
		return "none"
	}
}

// String returns a compact description of the non-blank identifiers, used in change comments.
func (i Identifiers) String() string {
	var parts []string
	for _, part := range []struct {
		label string
		value string
	}{
		{"name", i.Name},
		{"isin", i.ISIN},
		{"ticker", i.Ticker},
		{"wkn", i.WKN},
	} {
		if value := strings.TrimSpace(part.value); value != "" {
			parts = append(parts, part.label+"="+value)
		}
	}
	if len(parts) == 0 {
		return "<no identifiers>"
	}
	return strings.Join(parts, " ")
}

// Resolver resolves identifier bundles against a Client.
type Resolver struct {
	client Client
}

// NewResolver creates a new Resolver for the client.
func NewResolver(client Client) *Resolver {
	return &Resolver{
		client: client,
	}
}

// Resolve returns all vehicles matched by the first identifier kind that yields a match,
// together with that kind.
//
// Returns an empty list and IdentifierKindNone if nothing matches.
func (r *Resolver) Resolve(identifiers Identifiers) ([]taxctlmodel.Vehicle, IdentifierKind) {
	// Try the security identifiers in priority order.
	for _, candidate := range []struct {
		kind  IdentifierKind
		value string
		get   func(*taxctlmodel.Security) string
	}{
		{IdentifierKindISIN, identifiers.ISIN, (*taxctlmodel.Security).ISIN},
		{IdentifierKindTicker, identifiers.Ticker, (*taxctlmodel.Security).Ticker},
		{IdentifierKindWKN, identifiers.WKN, (*taxctlmodel.Security).WKN},
		{IdentifierKindName, identifiers.Name, (*taxctlmodel.Security).Name},
	} {
		value := strings.TrimSpace(candidate.value)
		if value == "" {
			continue
		}
		var vehicles []taxctlmodel.Vehicle
		for _, security := range r.client.Securities() {
			if candidate.get(security) == value {
				vehicles = append(vehicles, security)
			}
		}
		if len(vehicles) > 0 {
			return vehicles, candidate.kind
		}
	}
	// Fall back to accounts by name.
	if name := strings.TrimSpace(identifiers.Name); name != "" {
		var vehicles []taxctlmodel.Vehicle
		for _, account := range r.client.Accounts() {
			if account.Name() == name {
				vehicles = append(vehicles, account)
			}
		}
		if len(vehicles) > 0 {
			return vehicles, IdentifierKindName
		}
	}
	return nil, IdentifierKindNone
}
