// Package model defines the domain types shared by the poll service and its
// adapters: settings, run status, the observable state snapshot, and the
// completion notification.
package model
