// Package cli turns command-line arguments into an app.Config. It validates
// flags and reports bad input as an ExitError carrying the process exit code.
package cli
