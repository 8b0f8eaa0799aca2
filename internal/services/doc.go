// Package services holds the shared error taxonomy and context annotations
// used by the pipeline stages and the external tool clients.
package services
