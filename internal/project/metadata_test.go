package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectMetadata_PackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
  "name": "demo", "version": "1.2.3", "description": "a demo",
  "license": {"type": "MIT"},
  "author": {"name": "Ada"},
  "contributors": ["Grace", {"name": "Linus"}]
}`)
	writeFile(t, dir, "src/a.js", "12345")
	writeFile(t, dir, "node_modules/dep/index.js", "ignored")

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "package.json"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "a.js"), newer, newer))

	s := newTestScanner(t, dir, nil)
	md, err := s.GetProjectMetadata(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, md.FileCount)
	info, err := os.Stat(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, info.Size()+5, md.TotalSize)
	assert.True(t, newer.Equal(md.LastModified))

	assert.Equal(t, "demo", md.Name)
	assert.Equal(t, "1.2.3", md.Version)
	assert.Equal(t, "a demo", md.Description)
	assert.Equal(t, "MIT", md.License)
	assert.Equal(t, []string{"Ada", "Grace", "Linus"}, md.Authors)
	assert.Nil(t, md.Git)
}

func TestGetProjectMetadata_Git(t *testing.T) {
	t.Run("branch with loose ref", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")
		writeFile(t, dir, ".git/refs/heads/main", "0123456789abcdef0123456789abcdef01234567\n")

		md, err := newTestScanner(t, dir, nil).GetProjectMetadata(context.Background(), dir)
		require.NoError(t, err)
		require.NotNil(t, md.Git)
		assert.Equal(t, &GitSummary{Branch: "main", Commit: "0123456789abcdef0123456789abcdef01234567"}, md.Git)
		assert.Equal(t, 0, md.FileCount, ".git is excluded from the listing")
	})

	t.Run("branch with packed ref", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".git/HEAD", "ref: refs/heads/release/v2\n")
		writeFile(t, dir, ".git/packed-refs", "# pack-refs with: peeled fully-peeled sorted\n"+
			"aaaa refs/heads/main\n"+
			"bbbb refs/heads/release/v2\n"+
			"^cccc\n")

		md, err := newTestScanner(t, dir, nil).GetProjectMetadata(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, &GitSummary{Branch: "release/v2", Commit: "bbbb"}, md.Git)
	})

	t.Run("detached head", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".git/HEAD", "deadbeef\n")

		md, err := newTestScanner(t, dir, nil).GetProjectMetadata(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, &GitSummary{Commit: "deadbeef", Detached: true}, md.Git)
	})
}

func TestParsePyproject(t *testing.T) {
	m, err := parsePyproject([]byte(`
[project]
name = "svc"
version = "0.4.0"
description = "service"
license = {text = "Apache-2.0"}
authors = [{name = "Ada", email = "ada@example.com"}, {email = "ops@example.com"}]
`))
	require.NoError(t, err)
	assert.Equal(t, &manifest{
		Name: "svc", Version: "0.4.0", Description: "service",
		License: "Apache-2.0", Authors: []string{"Ada", "ops@example.com"},
	}, m)

	m, err = parsePyproject([]byte(`
[tool.poetry]
name = "legacy"
version = "1.0"
license = "MIT"
authors = ["Jane Doe <jane@example.com>"]
`))
	require.NoError(t, err)
	assert.Equal(t, "legacy", m.Name)
	assert.Equal(t, "MIT", m.License)
	assert.Equal(t, []string{"Jane Doe"}, m.Authors)

	_, err = parsePyproject([]byte("[project\nname="))
	assert.Error(t, err)
}

func TestParsePom(t *testing.T) {
	m, err := parsePom([]byte(`<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <parent><version>3.1.0</version></parent>
  <artifactId>billing</artifactId>
  <description>
    Billing service
  </description>
  <licenses><license><name>BSD-3-Clause</name></license></licenses>
  <developers>
    <developer><name>Ada</name></developer>
    <developer><id>gh</id></developer>
  </developers>
</project>`))
	require.NoError(t, err)
	assert.Equal(t, &manifest{
		Name: "billing", Version: "3.1.0", Description: "Billing service",
		License: "BSD-3-Clause", Authors: []string{"Ada", "gh"},
	}, m)
}

func TestGetProjectMetadata_ManifestFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[project]\nname = \"tool\"\nversion = \"2.0\"\n")

	md, err := newTestScanner(t, dir, nil).GetProjectMetadata(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "tool", md.Name)
	assert.Equal(t, "2.0", md.Version)
}
