// Package transform provides the preprocessing transformers pipeline
// definitions are built from.
//
// Every Transformer is a fit/apply object over a Frame: Fit learns state from
// training rows, Transform applies it to any frame with the same column
// layout. Composites (Chain, Union, ColumnTransformer) nest transformers the
// same way the YAML definitions nest steps. Frames start as raw CSV strings;
// numeric transformers parse cells on the way in and always emit numeric
// frames.
//
// Fitted state is kept in exported fields and every concrete type is
// registered with encoding/gob, so a fitted tree round-trips through the model
// file unchanged.
package transform
