// Package tabstack is a reproducible training toolkit for tabular
// classification. It covers the full path from raw CSV to a deployable
// artifact: a leakage-free transform pipeline (imputation, one-hot
// encoding, range normalization) fitted on training rows only, stratified
// splitting and resampling plans, cross-validated hyperparameter sweeps
// with out-of-fold prediction retention, stacked ensembling over those
// out-of-fold predictions, recursive feature elimination, and
// classification metrics with ROC analysis.
//
// Every stochastic step draws from an explicit random source, so a run is
// a pure function of the data and one seed. Fitted pipelines and models
// serialize to self-contained gob artifacts and apply to new rows without
// refitting.
//
//	src := random.NewSource(42)
//	table, _ := dataset.ReadCSVFile("train.csv", "outcome")
//	pipe := pipeline.New(pipeline.Config{}, provider)
//	_ = pipe.Fit(table)
//	m, _ := pipe.ToMatrix(table)
//
//	trainer, _ := train.New(train.Config{Algorithm: "forest"}, provider)
//	model, _ := trainer.Fit(ctx, m, src)
//
// The tabstack command under cmd/tabstack drives the same flow from the
// command line.
package tabstack
