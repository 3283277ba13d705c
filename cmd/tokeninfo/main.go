// Tokeninfo prints how a token is classified and the resumption keys
// derived from it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/sigcore/internal/session"
	"github.com/1ureka/sigcore/internal/util"
)

func main() {
	profile := flag.String("profile", "", "Profile id appended to the key namespace")
	noReattach := flag.Bool("no-reattach", false, "Evaluate the reattach gate with reattach disabled")
	flag.Parse()

	util.SetProduction(false)

	token := strings.TrimSpace(flag.Arg(0))
	if token == "" {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			WithDefaultText("Token").
			Show()
		token = strings.TrimSpace(raw)
		pterm.Println()
	}
	if token == "" {
		util.LogError("no token given")
		os.Exit(1)
	}

	rs := session.NewResumption(session.Options{
		Token:           token,
		ProfileID:       *profile,
		DisableReattach: *noReattach,
	})
	keys := rs.Keys()

	rows := pterm.TableData{
		{"Field", "Value"},
		{"Token type", string(rs.TokenType())},
		{"Reattach", fmt.Sprint(rs.CanReattach())},
		{"Auth state key", orDisabled(keys.AuthStateKey)},
		{"Protocol key", orDisabled(keys.ProtocolKey)},
		{"Call id key", orDisabled(keys.CallIDKey)},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if keys.Disabled() {
		util.LogWarning("persistence disabled for this token")
	}
}

func orDisabled(key string) string {
	if key == "" {
		return "(disabled)"
	}
	return key
}
