package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance writing to out
func NewCommands(client *Client, out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}
	return &Commands{
		client: client,
		out:    out,
	}
}

// Create creates a link and displays the result
func (c *Commands) Create(ctx context.Context, target, code string) error {
	link, err := c.client.CreateLink(ctx, target, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeConflict) {
			return fmt.Errorf("code '%s' already exists", code)
		}
		return err
	}

	fmt.Fprintf(c.out, "Link created:\n")
	fmt.Fprintf(c.out, "Code: %s\n", link.Code)
	fmt.Fprintf(c.out, "Short URL: %s\n", c.client.ShortURL(link.Code))
	fmt.Fprintf(c.out, "URL: %s\n", link.URL)
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format(time.RFC3339))

	return nil
}

// Get retrieves and displays a link
func (c *Commands) Get(ctx context.Context, code string) error {
	link, err := c.client.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Code '%s' not found\n", code)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Link Information:\n")
	fmt.Fprintf(c.out, "Code: %s\n", link.Code)
	fmt.Fprintf(c.out, "URL: %s\n", link.URL)
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format(time.RFC3339))
	if link.LastClicked != nil {
		fmt.Fprintf(c.out, "Last Clicked: %s\n", link.LastClicked.Format(time.RFC3339))
	} else {
		fmt.Fprintf(c.out, "Last Clicked: Never\n")
	}
	fmt.Fprintf(c.out, "Clicks: %d\n", link.Clicks)

	return nil
}

// Delete removes a link
func (c *Commands) Delete(ctx context.Context, code string) error {
	if err := c.client.DeleteLink(ctx, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Code '%s' not found\n", code)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Link '%s' deleted successfully\n", code)
	return nil
}

// Resolve follows a link once and prints its target
func (c *Commands) Resolve(ctx context.Context, code string) error {
	target, err := c.client.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Code '%s' not found\n", code)
			return nil
		}
		return err
	}

	fmt.Fprintln(c.out, target)
	return nil
}

// QR writes the link's QR code PNG to path
func (c *Commands) QR(ctx context.Context, code, path string, size int) error {
	png, err := c.client.QRCode(ctx, code, size)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Code '%s' not found\n", code)
			return nil
		}
		return err
	}

	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(c.out, "QR code for %s written to %s\n", c.client.ShortURL(code), path)
	return nil
}

// List displays all links in a table format
func (c *Commands) List(ctx context.Context) error {
	links, err := c.client.ListLinks(ctx)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		fmt.Fprintln(c.out, "No links found")
		return nil
	}

	fmt.Fprintf(c.out, "%-15s %-50s %-20s %-20s %s\n", "Code", "URL", "Created At", "Last Clicked", "Clicks")
	fmt.Fprintln(c.out, strings.Repeat("-", 120))

	for _, link := range links {
		lastClicked := "Never"
		if link.LastClicked != nil {
			lastClicked = link.LastClicked.Format("2006-01-02 15:04:05")
		}

		target := link.URL
		if len(target) > 50 {
			target = target[:47] + "..."
		}

		fmt.Fprintf(c.out, "%-15s %-50s %-20s %-20s %d\n",
			link.Code,
			target,
			link.CreatedAt.Format("2006-01-02 15:04:05"),
			lastClicked,
			link.Clicks,
		)
	}

	return nil
}
