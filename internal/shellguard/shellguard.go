// Package shellguard screens shell commands before an agent runs them.
// Blocking rules stop destructive or privilege-changing commands; warning
// rules let the command through but flag it.
package shellguard

import (
	"fmt"
	"regexp"
	"strings"
)

// Categories a rule can belong to.
const (
	CategoryDangerous   = "dangerous-pattern"
	CategoryCriticalDir = "critical-directory"
	CategorySecurity    = "security-file"
	CategoryChaining    = "command-chaining"
	CategorySuspicious  = "suspicious-pattern"
	CategoryEnvironment = "environment"
)

type rule struct {
	re       *regexp.Regexp
	category string
	about    string
}

// Finding is a rule that matched a command.
type Finding struct {
	Category string `json:"category"`
	Rule     string `json:"rule"`
	About    string `json:"about"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s (%s: %s)", f.About, f.Category, f.Rule)
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Command string `json:"command"`
	Allowed bool   `json:"allowed"`
	// Block is the rule that stopped the command, nil when allowed.
	Block    *Finding  `json:"block,omitempty"`
	Warnings []Finding `json:"warnings,omitempty"`
}

// Reason explains a blocked verdict in a form suitable for the agent.
func (v Verdict) Reason() string {
	if v.Allowed || v.Block == nil {
		return ""
	}
	return fmt.Sprintf("SECURITY ALERT: %s blocked. Command: %s. Matched %s %q. "+
		"If this command is really needed, review it and run it manually.",
		v.Block.About, v.Command, v.Block.Category, v.Block.Rule)
}

func compile(category string, defs [][2]string) []rule {
	rules := make([]rule, 0, len(defs))
	for _, d := range defs {
		rules = append(rules, rule{
			re:       regexp.MustCompile(`(?i)` + d[0]),
			category: category,
			about:    d[1],
		})
	}
	return rules
}

var dangerousRules = compile(CategoryDangerous, [][2]string{
	{`\brm\s+-rf\s+/`, "recursive delete from the filesystem root"},
	{`\brm\s+-rf\s+\*`, "recursive delete of everything"},
	{`\brm\s+-rf\s+~`, "recursive delete of the home directory"},
	{`\brm\s+-rf\s+\.`, "recursive delete of the current tree"},
	{`\bchmod\s+777`, "world-writable permissions"},
	{`\bchmod\s+-R\s+777`, "recursive world-writable permissions"},
	{`\bchown\s+-R\s+root`, "recursive ownership change to root"},
	{`\bpasswd\s+root`, "root password change"},
	{`\bsu\s+-`, "switch to root login shell"},
	{`\bsudo\s+su\b`, "switch to root via sudo"},
	{`\bssh\s+.*@.*\s+(rm|dd|mkfs)`, "remote destructive command"},
	{`\bcurl\s+.*\|\s*sh\b`, "piping a download into a shell"},
	{`\bwget\s+.*\|\s*sh\b`, "piping a download into a shell"},
	{`\bbash\s+<\(curl`, "executing a downloaded script"},
	{`\bbash\s+<\(wget`, "executing a downloaded script"},
	{`\bdd\s+if=.*\s+of=/dev/`, "raw write to a device"},
	{`\bmkfs\.`, "filesystem creation"},
	{`\bfdisk\b`, "disk partitioning"},
	{`\bparted\b`, "disk partitioning"},
	{`\bkill\s+-9\s+1\b`, "killing init"},
	{`\bkillall\s+-9`, "mass process kill"},
	{`\bsystemctl\s+disable`, "disabling a system service"},
	{`\bsystemctl\s+stop\s+(ssh|network|firewall)`, "stopping a critical service"},
	{`\bservice\s+.*\s+stop`, "stopping a system service"},
	{`\bcrontab\s+-r`, "removing all cron jobs"},
	{`\bapt-get\s+remove\s+.*essential`, "removing essential packages"},
	{`\byum\s+remove\s+.*kernel`, "removing the kernel"},
	{`\bbrew\s+uninstall\s+.*bash`, "removing the shell"},
	{`\bmount\s+.*\s+/`, "mounting over a system path"},
	{`\bumount\s+/`, "unmounting a system path"},
	{`\bhistory\s+-c`, "clearing shell history"},
	{`\bunset\s+HISTFILE`, "disabling shell history"},
	{`\bcurl\s+.*\s+-o\s+/usr/bin/`, "downloading into /usr/bin"},
	{`\bwget\s+.*\s+-O\s+/usr/bin/`, "downloading into /usr/bin"},
	{`\biptables\s+-F`, "flushing firewall rules"},
	{`\bufw\s+disable`, "disabling the firewall"},
	{`\brmmod\b`, "removing a kernel module"},
	{`\bmodprobe\s+-r`, "removing a kernel module"},
})

var suspiciousRules = compile(CategorySuspicious, [][2]string{
	{`\brm\s+-rf`, "recursive delete"},
	{`\bsudo\s+`, "privileged command"},
	{`\bcurl\s+.*\|\s*bash`, "piping a download into bash"},
	{`\bwget\s+.*\|\s*bash`, "piping a download into bash"},
	{`\bchmod\s+\+x\s+/tmp/`, "making a temp file executable"},
	{`\bcp\s+.*\s+/usr/bin/`, "copying into /usr/bin"},
	{`\bmv\s+.*\s+/usr/bin/`, "moving into /usr/bin"},
	{`>\s*/dev/null\s+2>&1`, "silenced output"},
	{`\bnohup\s+.*&`, "detached background process"},
})

var environmentRules = compile(CategoryEnvironment, [][2]string{
	{`\b(export|unset)\s+(PATH|LD_LIBRARY_PATH|HOME)\b`, "changing a system environment variable"},
})

var chainingRules = compile(CategoryChaining, [][2]string{
	{`;\s*(rm|dd|mkfs|fdisk)\b`, "chaining a destructive command"},
})

// CriticalDirectories are system paths that file-changing commands must
// not target.
var CriticalDirectories = []string{
	"/etc/", "/usr/bin/", "/usr/sbin/", "/bin/", "/sbin/", "/boot/",
	"/System/", "/Library/System/",
}

// SecurityFiles are credentials and system files that must not be
// modified or overwritten.
var SecurityFiles = []string{
	"/etc/passwd", "/etc/shadow", "/etc/sudoers", "/etc/ssh/sshd_config",
	"/etc/hosts", "/etc/resolv.conf",
	"~/.ssh/authorized_keys", "~/.ssh/id_rsa", "~/.aws/credentials",
}

var criticalDirRules = func() []rule {
	defs := make([][2]string, 0, len(CriticalDirectories))
	for _, dir := range CriticalDirectories {
		defs = append(defs, [2]string{
			`\b(rm|mv|cp|chmod|chown)\b.*` + regexp.QuoteMeta(dir),
			"change to critical directory " + dir,
		})
	}
	return compile(CategoryCriticalDir, defs)
}()

var securityFileRules = func() []rule {
	defs := make([][2]string, 0, len(SecurityFiles))
	for _, f := range SecurityFiles {
		defs = append(defs, [2]string{
			`(\b(rm|mv|cp|chmod|chown)\b|\becho\b.*>|\bcat\b.*>).*` + regexp.QuoteMeta(f),
			"change to security file " + f,
		})
	}
	return compile(CategorySecurity, defs)
}()

// blocking rule groups in evaluation order.
var blocking = [][]rule{dangerousRules, criticalDirRules, securityFileRules, chainingRules}

// Evaluate screens command. Blocking rules are checked first and the first
// match decides; warning rules only add to Warnings. An empty command is
// allowed.
func Evaluate(command string) Verdict {
	v := Verdict{Command: command, Allowed: true}
	if strings.TrimSpace(command) == "" {
		return v
	}

	for _, group := range blocking {
		if f, ok := firstMatch(group, command); ok {
			v.Allowed = false
			v.Block = &f
			return v
		}
	}

	// One suspicious warning is enough; environment changes are reported
	// separately.
	if f, ok := firstMatch(suspiciousRules, command); ok {
		v.Warnings = append(v.Warnings, f)
	}
	if f, ok := firstMatch(environmentRules, command); ok {
		v.Warnings = append(v.Warnings, f)
	}
	return v
}

func firstMatch(rules []rule, command string) (Finding, bool) {
	for _, r := range rules {
		if r.re.MatchString(command) {
			return Finding{
				Category: r.category,
				Rule:     strings.TrimPrefix(r.re.String(), "(?i)"),
				About:    r.about,
			}, true
		}
	}
	return Finding{}, false
}
