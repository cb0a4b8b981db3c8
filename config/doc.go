// Package config provides a transform-step registry and human-readable
// pipeline definitions.
//
// Register step builders by name, then define pipelines in YAML that
// reference those names and their parameters:
//
//	name: dpp9
//	header:
//	  columns: [y, age, job, month]
//	  target: y
//	feature_transform:
//	  columns:
//	    - name: numeric_processing
//	      columns: [age]
//	      steps:
//	        - robust_imputer
//	        - robust_standard_scaler
//	    - name: categorical_processing
//	      columns: [job]
//	      steps:
//	        - name: robust_ordinal
//	          threshold: auto
//	  steps:
//	    - name: robust_pca
//	      n_components: 98
//	label_transform:
//	  name: robust_label_encoder
//	  labels: ["no"]
//	  fill_label_value: "yes"
//	  include_unseen_class: true
//
// Build the transforms with BuildFeatureTransform and BuildLabelTransform.
// DefaultRegistry holds every transformer in package transform.
package config
