package handlers

import (
	"strings"
	"time"

	"image-pipeline/internal/pipeline"
	"image-pipeline/internal/startup"
)

type Handlers struct {
	pipe       *pipeline.Pipeline
	inputDir   string
	outputDir  string
	publicPath string
	startTime  time.Time
}

func New(pipe *pipeline.Pipeline, config *startup.Config) *Handlers {
	return &Handlers{
		pipe:       pipe,
		inputDir:   config.InputDir,
		outputDir:  config.OutputDir,
		publicPath: strings.TrimSuffix(config.PublicPath, "/"),
		startTime:  time.Now(),
	}
}
