// Package expr evaluates the arithmetic expressions used by parametric
// blocks, such as "{M.chest/4 + F.ease_chest/4}".
//
// Only numbers, names bound in an Env, attribute access on namespaces, the
// functions abs, min, max and round, and the operators + - * / ** are
// accepted. Nothing else can be reached from an expression.
package expr
