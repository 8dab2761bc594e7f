// Package ir defines the portable expression representation captured by
// lazy table operations: literal values, expression trees and named terms.
//
// Expressions are pure data. They are parsed from source text (ParseExpr,
// ParseTerm) or built directly, and lowered to SQL by the dialect package.
package ir
