package main

import (
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/filesystem"
	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/backup"
	"github.com/felixgeelhaar/pluginkit/internal/domain/compiler"
	"github.com/felixgeelhaar/pluginkit/internal/domain/config"
	"github.com/felixgeelhaar/pluginkit/internal/domain/gate"
	"github.com/felixgeelhaar/pluginkit/internal/domain/pipeline"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// workDir holds backups and staged copies. Tests point it at a temp dir.
var workDir = filepath.Join(os.TempDir(), "pluginkit")

// services wires the domain packages for one command invocation.
type services struct {
	cfg      *config.Config
	logger   ports.Logger
	archiver *archive.Archiver
	compiler *compiler.Compiler
	pipeline *pipeline.Pipeline
}

func newServices(cfg *config.Config, logger ports.Logger, outputDir string) *services {
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	backups := backup.NewManager(filepath.Join(workDir, "backups"), backup.WithLogger(logger))
	staging := backup.NewManager(filepath.Join(workDir, "staging"), backup.WithLogger(logger))

	c := compiler.NewCompiler(newRunner(), backups,
		compiler.WithConfig(cfg.Compiler),
		compiler.WithLogger(logger))
	a := archive.NewArchiver(
		archive.WithOutputDir(outputDir),
		archive.WithPolicy(cfg.Policy()),
		archive.WithLogger(logger))

	return &services{
		cfg:      cfg,
		logger:   logger,
		archiver: a,
		compiler: c,
		pipeline: pipeline.New(c, a, staging, pipeline.WithLogger(logger)),
	}
}

func (s *services) generator() *scaffold.Generator {
	return scaffold.NewGenerator(filesystem.NewRealFileSystem(),
		scaffold.WithAuthor(s.cfg.Scaffold.Author),
		scaffold.WithDescription(s.cfg.Scaffold.Description),
		scaffold.WithLogger(s.logger))
}

func (s *services) gate(skipPluginTests bool) *gate.Gate {
	return gate.New(newRunner(), s.cfg.PluginsRoot,
		gate.WithConfig(s.cfg.Gate),
		gate.WithSkipPluginTests(skipPluginTests),
		gate.WithLogger(s.logger))
}
