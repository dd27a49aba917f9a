package main

import (
	"errors"
	"fmt"
	"io"
	"mashub/api/internal/config"
	"mashub/api/internal/service"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errNoSecret = errors.New("secret is required: pass --secret or set " + config.EnvPrefix + "_WEBHOOK_SECRET")

func runSign(cmd *cobra.Command, _ []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv(config.EnvPrefix + "_WEBHOOK_SECRET")
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errNoSecret
	}

	var r io.Reader = cmd.InOrStdin()
	if in, _ := cmd.Flags().GetString("in"); in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	signature := service.Sign(body, secret)

	if curl, _ := cmd.Flags().GetBool("curl"); curl {
		fmt.Fprintf(cmd.OutOrStdout(), "-H 'X-Maschain-Signature: %s' -H 'X-Maschain-Timestamp: %s'\n",
			signature, strconv.FormatInt(time.Now().Unix(), 10))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), signature)
	return nil
}
