package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// GitRunner clones repositories for VCS-sourced pods.
type GitRunner interface {
	Clone(ctx context.Context, url, dest, ref string) error
}

// ExecGit runs the git binary on PATH.
type ExecGit struct{}

var commitPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Clone performs a shallow single-branch clone of url into dest, checking out
// ref when set. Tags and branches are cloned directly; commit hashes are
// fetched into the shallow clone afterwards, since --branch only accepts names.
func (ExecGit) Clone(ctx context.Context, url, dest, ref string) error {
	if !commitPattern.MatchString(ref) {
		_, err := runGit(ctx, cloneArgs(url, dest, ref)...)
		return err
	}
	if _, err := runGit(ctx, cloneArgs(url, dest, "")...); err != nil {
		return err
	}
	if _, err := runGit(ctx, "-C", dest, "fetch", "--depth", "1", "origin", ref); err != nil {
		return err
	}
	_, err := runGit(ctx, "-C", dest, "checkout", "--quiet", "FETCH_HEAD")
	return err
}

func cloneArgs(url, dest, ref string) []string {
	args := []string{"clone", "--depth", "1", "--single-branch"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	return append(args, url, dest)
}

func runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
