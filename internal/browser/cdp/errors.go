// internal/browser/cdp/errors.go
package cdp

import (
	"errors"
	"strings"

	"github.com/chromedp/cdproto"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// staleMarkers are protocol messages Chrome returns once a node id no longer
// refers to a node in the live document.
var staleMarkers = []string{
	"no node with given id",
	"could not find node with given id",
	"node with given id does not belong to the document",
	"no node found for given backend id",
	"node is detached from document",
	"cannot find context with specified id",
}

func isStale(err error) bool {
	msg := err.Error()
	var pe *cdproto.Error
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	msg = strings.ToLower(msg)
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classify tags stale-node failures as transient and returns everything else unchanged.
func classify(subject string, err error) error {
	if err == nil || driver.IsTransient(err) {
		return err
	}
	if isStale(err) {
		return driver.Stale(subject, err)
	}
	return err
}
