package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	maxChatLine  = 3500
	maxChatField = 600
	maxChatStack = 900
)

// formatChatLine turns one zerolog JSON line into a compact chat message:
//
//	[WARN] delivery failed
//	- comp=scheduler
//	- err=...
//
// Fields are sorted by key. Non-JSON input is sent trimmed.
func formatChatLine(p []byte) string {
	raw := bytes.TrimSpace(p)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return truncate(string(raw), maxChatLine)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(m[k])
		if k == "stack" {
			b.WriteString("\n- stack=\n" + truncate(v, maxChatStack))
			continue
		}
		b.WriteString("\n- " + k + "=" + truncate(v, maxChatField))
	}
	return truncate(b.String(), maxChatLine)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
