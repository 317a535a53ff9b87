/*

Process of compilation

Structured Program (llir) ->
	rewrite ->
Primitive Program ->
	layout ->
Layouts ->
	resolve (addressing, then substitution) ->
Resolved Program ->
	emit ->
Binary Image ->
	load ->
Virtual Machine (vm)

*/
package compiler
