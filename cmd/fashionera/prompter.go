// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/relabs-tech/fashionera/core/access"
)

// terminalPrompter prints the consent URL and reads back the address the
// browser was redirected to. An empty line dismisses the sign-in.
type terminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *terminalPrompter) Prompt(ctx context.Context, consentURL string) (string, string, error) {
	fmt.Fprintf(p.out, "Open this page to sign in:\n\n  %s\n\nThen paste the address you were redirected to (empty to cancel): ", consentURL)

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		lines <- strings.TrimSpace(line)
	}()

	var line string
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case line = <-lines:
	}
	if line == "" {
		return "", "", access.ErrDismissed
	}
	redirect, err := url.Parse(line)
	if err != nil {
		return "", "", fmt.Errorf("cannot parse redirect address: %w", err)
	}
	query := redirect.Query()
	if e := query.Get("error"); e == "access_denied" {
		return "", "", access.ErrDismissed
	} else if e != "" {
		return "", "", fmt.Errorf("sign-in failed: %s", e)
	}
	return query.Get("code"), query.Get("state"), nil
}
