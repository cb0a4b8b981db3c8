// Package processors is the lookup table from processor names to pipeline
// definitions. The built-in definitions (dpp2, dpp9) are embedded YAML files;
// more can be loaded from a directory at start-up.
package processors
