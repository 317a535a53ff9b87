package compiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/lowlang/low/compiler/emit"
	"github.com/lowlang/low/compiler/layout"
	"github.com/lowlang/low/compiler/llir"
	"github.com/lowlang/low/compiler/resolve"
	"github.com/lowlang/low/compiler/rewrite"
)

// Compile turns a structured program into a loadable image.
func Compile(ctx context.Context, p llir.Program) (img []int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile program", "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	err = llir.Validate(p)
	if err != nil {
		return nil, errors.Wrap(err, "validate")
	}

	p, err = rewrite.Expand(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "rewrite")
	}

	ls, err := layout.Of(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "layout")
	}

	tbl, err := resolve.Table(ctx, p, ls)
	if err != nil {
		return nil, errors.Wrap(err, "resolve symbols")
	}

	p, err = resolve.Substitute(ctx, p, tbl)
	if err != nil {
		return nil, errors.Wrap(err, "substitute")
	}

	img, err = emit.Image(ctx, nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	total := 0
	for _, l := range ls {
		total += l.Size
	}

	if total != len(img) {
		return nil, errors.New("layout does not match image: %d != %d words", total, len(img))
	}

	return img, nil
}
