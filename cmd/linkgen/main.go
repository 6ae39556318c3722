package main

// Work with client links from the command line:
//   go run ./cmd/linkgen encode --origin https://myinsurancephoto.com request.json
//   go run ./cmd/linkgen decode "https://myinsurancephoto.com/#/upload?data=..."
//   go run ./cmd/linkgen email --origin https://myinsurancephoto.com request.json > email.html

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"photoreq-backend/internal/agent"
	"photoreq-backend/internal/linkcodec"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("linkgen", flag.ContinueOnError)
	origin := fs.String("origin", cfg.AppOrigin, "Origin of the client app")
	agency := fs.String("agency", agent.DefaultBranding.Agency, "Agency name for the email")
	tagline := fs.String("tagline", agent.DefaultBranding.Tagline, "Tagline for the email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: linkgen [encode|decode|email] [flags] <request.json|link|->")
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "encode", "email":
		req, err := readRequest(rest, stdin)
		if err != nil {
			return err
		}
		token, err := linkcodec.Encode(req)
		if err != nil {
			return err
		}
		link := linkcodec.BuildLink(*origin, token)
		if command == "encode" {
			_, err = fmt.Fprintln(stdout, link)
			return err
		}
		html, err := agent.EmailTemplate(agent.Branding{Agency: *agency, Tagline: *tagline}, req, link)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, html)
		return err
	case "decode":
		if len(rest) < 1 {
			return fmt.Errorf("decode needs a link or token")
		}
		token, ok := linkcodec.ExtractToken(strings.Join(rest, " "))
		if !ok {
			return fmt.Errorf("no token found")
		}
		req, err := linkcodec.Decode(token)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(req)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func readRequest(args []string, stdin io.Reader) (requests.PhotoRequest, error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return requests.PhotoRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req requests.PhotoRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return requests.PhotoRequest{}, fmt.Errorf("parse request: %w", err)
	}
	if err := requests.Validate(req); err != nil {
		return requests.PhotoRequest{}, err
	}
	return req, nil
}
