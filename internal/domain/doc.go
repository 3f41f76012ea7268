// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (keys, contacts) and contracts (stores, crypto
// provider, services) only, plus the sentinel errors every layer reports.
package domain
