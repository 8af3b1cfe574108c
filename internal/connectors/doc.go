// Package connectors provides source adapter implementations for the
// supported providers and the factory that builds them.
//
// Each provider registers an AdapterBuilder with the Factory at startup;
// the factory resolves the connector's credential handle before building.
package connectors
