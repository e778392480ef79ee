package config

import (
	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/ml"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// Pipeline converts the dataset, features, classifier and training sections
// into the training pipeline configuration.
func (c *Config) Pipeline() training.Config {
	p := training.DefaultConfig(c.Dataset.Path)
	p.MaxSamples = c.Dataset.MaxSamples
	p.K = c.Features.K
	p.MaxFeatures = c.Features.MaxFeatures
	p.TestFraction = c.Training.TestFraction
	p.Seed = c.Training.Seed
	p.Folds = c.Training.Folds
	p.Grid = training.Grid{
		Neighbors: c.Training.Grid.Neighbors,
		Trees:     c.Training.Grid.Trees,
		MaxDepth:  c.Training.Grid.MaxDepth,
	}

	p.Classifier = ml.DefaultParams()
	p.Classifier.Family = domain.Family(c.Classifier.Family)
	f := &p.Classifier.Forest
	f.Trees = c.Classifier.Forest.Trees
	f.MaxDepth = c.Classifier.Forest.MaxDepth
	f.MinSamplesSplit = c.Classifier.Forest.MinSamplesSplit
	f.MinSamplesLeaf = c.Classifier.Forest.MinSamplesLeaf
	f.MaxFeatures = c.Classifier.Forest.MaxFeatures
	f.Seed = c.Training.Seed
	f.Workers = c.Classifier.Workers
	p.Classifier.KNN.Neighbors = c.Classifier.KNN.Neighbors
	p.Classifier.KNN.Workers = c.Classifier.Workers
	return p
}
