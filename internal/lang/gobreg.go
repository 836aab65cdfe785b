package lang

import "encoding/gob"

// init registers every concrete Stmt/Expr node so a function's Args/Body
// tree can round-trip through encoding/gob when a UserFunction is frozen
// for durable storage (see internal/freeze). Grounded on
// original_source/tic/eval/freezing.py's approach of pickling the
// function's code directly rather than re-deriving it from source text.
func init() {
	gob.Register(&ExprStmt{})
	gob.Register(&Assign{})
	gob.Register(&AugAssign{})
	gob.Register(&Pass{})
	gob.Register(&Break{})
	gob.Register(&Continue{})
	gob.Register(&Del{})
	gob.Register(&Return{})
	gob.Register(&Global{})
	gob.Register(&Nonlocal{})
	gob.Register(&If{})
	gob.Register(&While{})
	gob.Register(&For{})
	gob.Register(&FunctionDef{})
	gob.Register(&ClassDef{})
	gob.Register(&TryStmt{})
	gob.Register(&Raise{})
	gob.Register(&Import{})
	gob.Register(&ImportFrom{})

	gob.Register(&NameExpr{})
	gob.Register(&ConstExpr{})
	gob.Register(&FStringExpr{})
	gob.Register(&ListExpr{})
	gob.Register(&TupleExpr{})
	gob.Register(&SetExpr{})
	gob.Register(&DictExpr{})
	gob.Register(&ListComp{})
	gob.Register(&SetComp{})
	gob.Register(&DictComp{})
	gob.Register(&BoolOpExpr{})
	gob.Register(&BinOpExpr{})
	gob.Register(&UnaryOpExpr{})
	gob.Register(&CompareExpr{})
	gob.Register(&IfExp{})
	gob.Register(&CallExpr{})
	gob.Register(&AttributeExpr{})
	gob.Register(&SliceExpr{})
	gob.Register(&SubscriptExpr{})
	gob.Register(&LambdaExpr{})
}
