package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"soul-scanner/internal/scan"
	"soul-scanner/internal/wallet"
)

// terminalUI renders pipeline progress as plain text lines, or only the final
// result as JSON.
type terminalUI struct {
	w        io.Writer
	jsonMode bool
}

func newTerminalUI(w io.Writer, jsonMode bool) *terminalUI {
	return &terminalUI{w: w, jsonMode: jsonMode}
}

type jsonResult struct {
	scan.Result
	Chain    string `json:"chain"`
	ShareURL string `json:"shareUrl"`
}

func (u *terminalUI) Alert(message string) {
	if u.jsonMode {
		return
	}
	fmt.Fprintf(u.w, "! %s\n", message)
}

func (u *terminalUI) ShowWallet(address string) {
	if u.jsonMode {
		return
	}
	fmt.Fprintf(u.w, "Wallet: %s (%s)\n", wallet.DisplayAddress(address), wallet.ClassifyAddress(address))
}

func (u *terminalUI) SetScanEnabled(bool) {}

func (u *terminalUI) ShowCarvUID(uid string) {
	if u.jsonMode {
		return
	}
	fmt.Fprintf(u.w, "CARV UID: %s\n", uid)
}

func (u *terminalUI) ShowLoading(message string) {
	if u.jsonMode {
		return
	}
	fmt.Fprintln(u.w, message)
}

func (u *terminalUI) Render(result scan.Result) {
	if u.jsonMode {
		enc := json.NewEncoder(u.w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(jsonResult{
			Result:   result,
			Chain:    string(wallet.ClassifyAddress(result.Address)),
			ShareURL: scan.ShareURL(result),
		})
		return
	}
	source := "CARV"
	if !result.ScoreSourced {
		source = "estimated"
	}
	fmt.Fprintf(u.w, "Soul Points: %d (%s)\n", result.Score, source)
	fmt.Fprintf(u.w, "Insight: %s\n", result.Insight)
	fmt.Fprintf(u.w, "Share: %s\n", scan.ShareURL(result))
}
