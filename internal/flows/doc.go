// Package flows holds the login/verification state machine free of root package
// dependencies. The root package wires backend calls and persistence in through a
// Deps struct and maps flow errors onto its public taxonomy.
package flows
