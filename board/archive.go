package board

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
)

// NewArchiveConnectionFromUrl fetches and loads a one-shot archive snapshot.
// A fetch or parse failure is fatal to session start: the manager ends in
// `StatusError` and the error is returned, with no partial graph applied.
func NewArchiveConnectionFromUrl(
	ctx context.Context,
	archiveUrl string,
	registry *PathRegistry,
	reconciler *Reconciler,
	settings *ConnectionSettings,
) (*ConnectionManager, error) {
	connection := newConnectionManager(ctx, ModeArchive, registry, reconciler, settings)
	connection.setStatus(StatusConnecting)

	fetchCtx, fetchCancel := context.WithTimeout(connection.ctx, settings.ArchiveFetchTimeout)
	defer fetchCancel()

	req, err := http.NewRequestWithContext(fetchCtx, "GET", archiveUrl, nil)
	if err != nil {
		connection.setStatus(StatusError)
		return connection, err
	}
	response, err := defaultClient().Do(req)
	if err != nil {
		connection.setStatus(StatusError)
		return connection, fmt.Errorf("archive fetch: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		connection.setStatus(StatusError)
		return connection, fmt.Errorf("archive fetch: %s", response.Status)
	}

	if err := connection.loadArchive(response.Body); err != nil {
		connection.setStatus(StatusError)
		return connection, err
	}
	connection.setStatus(StatusConnected)
	return connection, nil
}

// NewArchiveConnectionFromFile loads a locally-supplied archive file.
func NewArchiveConnectionFromFile(
	ctx context.Context,
	path string,
	registry *PathRegistry,
	reconciler *Reconciler,
	settings *ConnectionSettings,
) (*ConnectionManager, error) {
	connection := newConnectionManager(ctx, ModeArchive, registry, reconciler, settings)
	connection.setStatus(StatusConnecting)

	f, err := os.Open(path)
	if err != nil {
		connection.setStatus(StatusError)
		return connection, fmt.Errorf("archive open: %w", err)
	}
	defer f.Close()

	if err := connection.loadArchive(f); err != nil {
		connection.setStatus(StatusError)
		return connection, err
	}
	connection.setStatus(StatusConnected)
	return connection, nil
}

// loadArchive parses one bulk payload, transparently handling gzip, and
// applies it as the single store load of the session.
func (self *ConnectionManager) loadArchive(r io.Reader) error {
	buffered := bufio.NewReader(r)

	magic, err := buffered.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gzipReader, err := gzip.NewReader(buffered)
		if err != nil {
			return fmt.Errorf("archive gzip: %w", err)
		}
		defer gzipReader.Close()
		return self.decodeArchive(gzipReader)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("archive read: %w", err)
	}
	return self.decodeArchive(buffered)
}

func (self *ConnectionManager) decodeArchive(r io.Reader) error {
	snapshot := &Snapshot{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(snapshot); err != nil {
		return fmt.Errorf("archive parse: %w", err)
	}
	if snapshot.Nodes == nil && snapshot.Edges == nil {
		return errors.New("archive parse: empty payload")
	}

	self.reconciler.Apply(&Event{
		Type:     EventTypeSnapshot,
		Snapshot: snapshot,
	})
	glog.V(LogVStatus).Infof("[conn]archive loaded nodes=%d edges=%d\n", len(snapshot.Nodes), len(snapshot.Edges))
	return nil
}

// ParseArchive decodes an archive payload without applying it. Used by
// tooling that inspects archives outside a session.
func ParseArchive(r io.Reader) (*Snapshot, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gzipReader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		snapshot := &Snapshot{}
		if err := json.NewDecoder(gzipReader).Decode(snapshot); err != nil {
			return nil, err
		}
		return snapshot, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	snapshot := &Snapshot{}
	if err := json.NewDecoder(buffered).Decode(snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// IsArchivePath reports whether a connect target looks like a local archive
// rather than a URL.
func IsArchivePath(target string) bool {
	return !strings.Contains(target, "://")
}
