package cli

import (
	"strconv"

	"github.com/gusdev/gus/pkg/gus/output"
	"github.com/gusdev/gus/pkg/gus/shell"
)

// RuleInfo is the JSON shape of one auto-switch rule.
type RuleInfo struct {
	Pattern  string `json:"pattern"`
	Identity string `json:"identity"`
}

// AutoSwitchStatus is the JSON shape of `auto-switch list`.
type AutoSwitchStatus struct {
	Enabled bool       `json:"enabled"`
	Rules   []RuleInfo `json:"rules"`
}

// EnableAutoSwitch turns directory-based switching on.
func (c *CLI) EnableAutoSwitch() *output.Error {
	if err := c.matcher.Enable(); err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Auto-switch enabled")
	c.output.Infof("Open a new shell or re-run `eval \"$(gus setup)\"` to install the cd hook")
	return nil
}

// DisableAutoSwitch turns directory-based switching off. Rules are kept.
func (c *CLI) DisableAutoSwitch() *output.Error {
	if err := c.matcher.Disable(); err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Auto-switch disabled")
	return nil
}

// AddRule appends a rule binding pattern to an identity.
func (c *CLI) AddRule(pattern, identityID string) *output.Error {
	if err := c.matcher.Add(pattern, identityID); err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Added rule %s -> %s", pattern, identityID)
	c.warnIfAutoSwitchOff()
	return nil
}

// RemoveRule deletes the rule with the given pattern.
func (c *CLI) RemoveRule(pattern string) *output.Error {
	if err := c.matcher.Remove(pattern); err != nil {
		return output.AsError(err)
	}
	c.output.Successf("Removed rule %s", pattern)
	return nil
}

// ListRules prints the rules in evaluation order.
func (c *CLI) ListRules() *output.Error {
	enabled, err := c.matcher.Enabled()
	if err != nil {
		return output.AsError(err)
	}
	rules, err := c.matcher.List()
	if err != nil {
		return output.AsError(err)
	}

	status := AutoSwitchStatus{Enabled: enabled, Rules: make([]RuleInfo, 0, len(rules))}
	for _, r := range rules {
		status.Rules = append(status.Rules, RuleInfo{Pattern: r.Pattern, Identity: r.IdentityID})
	}
	if c.output.IsJSON() {
		return jsonError(c.output.WriteJSON(status, nil))
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	c.output.WriteData("auto-switch: %s\n", state)
	if len(status.Rules) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(status.Rules))
	for i, r := range status.Rules {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Pattern, r.Identity})
	}
	c.output.WriteTable([]string{"#", "Pattern", "Identity"}, rows)
	return nil
}

// CheckAutoSwitch runs the matcher for cwd and, on a switch, exports the new
// identity through the session script. quiet suppresses status messages.
func (c *CLI) CheckAutoSwitch(cwd string, quiet bool) *output.Error {
	res, err := c.matcher.Check(c.sessionID, cwd)
	if err != nil {
		return output.AsError(err)
	}
	switch {
	case !res.Enabled:
		if !quiet {
			c.output.Infof("Auto-switch is disabled")
		}
		return nil
	case !res.Matched:
		if !quiet {
			c.output.Infof("No rule matches %s", cwd)
		}
		return nil
	case !res.Switched:
		if !quiet {
			c.output.Infof("Already using %s (rule %s)", res.IdentityID, res.Pattern)
		}
		return nil
	}

	ident, err := c.identities.Get(res.IdentityID)
	if err != nil {
		return output.AsError(err)
	}
	if e := c.writeSessionScript(shell.ExportScript(ident)); e != nil {
		return e
	}
	if !quiet {
		c.output.Infof("Auto-switched to %s (rule %s)", ident, res.Pattern)
	}
	return nil
}

func (c *CLI) warnIfAutoSwitchOff() {
	if enabled, err := c.matcher.Enabled(); err == nil && !enabled {
		c.output.Warnf(output.WarnAutoSwitchOff, "auto-switch is disabled; enable it with: gus auto-switch enable")
	}
}
