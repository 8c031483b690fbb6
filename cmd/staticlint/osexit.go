package main

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// OsExitAnalyzer запрещает прямые вызовы os.Exit в функции main пакета main.
var OsExitAnalyzer = &analysis.Analyzer{
	Name:     "osexit",
	Doc:      "prohibits direct calls to os.Exit in main function of main package",
	Run:      runOsExitCheck,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

func runOsExitCheck(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	ins.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(node ast.Node) {
		funcDecl := node.(*ast.FuncDecl)
		if funcDecl.Name.Name != "main" {
			return
		}

		ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
			callExpr, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			selExpr, ok := callExpr.Fun.(*ast.SelectorExpr)
			if !ok || selExpr.Sel.Name != "Exit" {
				return true
			}

			ident, ok := selExpr.X.(*ast.Ident)
			if !ok {
				return true
			}
			if pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName); ok &&
				pkgName.Imported().Path() == "os" {
				pass.Reportf(callExpr.Pos(), "avoid direct os.Exit call in main function of main package")
			}
			return true
		})
	})

	return nil, nil
}
