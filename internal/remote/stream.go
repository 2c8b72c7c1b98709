package remote

import (
	"bufio"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxEventLine bounds a single line of the change stream.
const maxEventLine = 1 << 20

// Watch follows the change stream and calls fn for every event until ctx is
// canceled, the server closes the stream, or fn returns an error. A canceled
// context is not reported as an error.
func (c *Client) Watch(ctx context.Context, fn func(Event) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/mindmaps/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return networkError("watch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(ctx, req, resp.StatusCode, body)
	}

	err = readEvents(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body. Only the data field is decoded;
// the event name is repeated inside the JSON envelope.
func readEvents(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventLine)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data.Len() == 0 {
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			data.Reset()
			if err := fn(ev); err != nil {
				return err
			}
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field == "data" {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return networkError("watch", err)
	}
	return nil
}

// DecodeChange decodes the data of a created or updated event.
func (e Event) DecodeChange() (DiagramChange, error) {
	var ch DiagramChange
	err := json.Unmarshal(e.Data, &ch)
	return ch, err
}

// DecodeDeletion decodes the data of a deleted event.
func (e Event) DecodeDeletion() (DiagramDeletion, error) {
	var d DiagramDeletion
	err := json.Unmarshal(e.Data, &d)
	return d, err
}
