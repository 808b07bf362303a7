// Package shell turns a single SQL statement into an engine.Operator tree.
// It is a thin boundary layer: only the statement shapes lab assignments
// actually need (SELECT ... FROM t [WHERE col op const], INSERT INTO t
// VALUES (...), DELETE FROM t [WHERE ...]) are recognized. Anything richer
// -- joins in the FROM clause, subqueries, GROUP BY with HAVING -- is
// explicitly out of scope; the engine package itself has no notion of SQL
// at all.
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/relcore/godb/engine"
)

// Planner builds an engine.Operator for one parsed SQL statement against db.
type Planner struct {
	db *engine.Database
}

// NewPlanner constructs a planner resolving table names against db's catalog.
func NewPlanner(db *engine.Database) *Planner {
	return &Planner{db: db}
}

// Plan parses sql and builds the operator tree implementing it.
func (p *Planner) Plan(sql string) (engine.Operator, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", sql, err)
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		return p.planSelect(s)
	case *sqlparser.Insert:
		return p.planInsert(s)
	case *sqlparser.Delete:
		return p.planDelete(s)
	default:
		return nil, fmt.Errorf("unsupported statement: %T", stmt)
	}
}

func (p *Planner) resolveTable(name string) (*engine.TableInfo, error) {
	return p.db.Catalog.GetTableInfo(name)
}

func tableExprName(expr sqlparser.TableExpr) (string, error) {
	aliased, ok := expr.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("unsupported FROM clause expression %T", expr)
	}
	tn, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("unsupported table reference %T", aliased.Expr)
	}
	return tn.Name.String(), nil
}

func (p *Planner) planSelect(s *sqlparser.Select) (engine.Operator, error) {
	if len(s.From) != 1 {
		return nil, fmt.Errorf("only single-table SELECT is supported, got %d FROM terms", len(s.From))
	}
	if len(s.GroupBy) > 0 || s.Having != nil {
		return nil, fmt.Errorf("GROUP BY and HAVING are unsupported")
	}
	name, err := tableExprName(s.From[0])
	if err != nil {
		return nil, err
	}
	info, err := p.resolveTable(name)
	if err != nil {
		return nil, err
	}

	var op engine.Operator = engine.NewSeqScan(info.File, info.Name)

	if s.Where != nil {
		op, err = applyWhere(op, s.Where.Expr)
		if err != nil {
			return nil, err
		}
	}

	if !isSelectStar(s.SelectExprs) {
		exprs, names, err := projectionFields(s.SelectExprs, op.Descriptor())
		if err != nil {
			return nil, err
		}
		op, err = engine.NewProject(exprs, names, s.Distinct != "", op)
		if err != nil {
			return nil, err
		}
	}

	if len(s.OrderBy) > 0 {
		fields := make([]engine.Expr, len(s.OrderBy))
		asc := make([]bool, len(s.OrderBy))
		for i, o := range s.OrderBy {
			colExpr, ok := o.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("unsupported ORDER BY expression %T", o.Expr)
			}
			ft, err := findField(op.Descriptor(), colExpr.Name.String())
			if err != nil {
				return nil, err
			}
			fields[i] = engine.NewFieldExpr(ft)
			asc[i] = o.Direction != sqlparser.DescScr
		}
		op, err = engine.NewOrderBy(fields, asc, op)
		if err != nil {
			return nil, err
		}
	}

	if s.Limit != nil && s.Limit.Rowcount != nil {
		n, err := limitCount(s.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		op = engine.NewLimit(op, n)
	}

	return op, nil
}

func isSelectStar(exprs sqlparser.SelectExprs) bool {
	if len(exprs) != 1 {
		return false
	}
	_, ok := exprs[0].(*sqlparser.StarExpr)
	return ok
}

func projectionFields(exprs sqlparser.SelectExprs, desc *engine.TupleDesc) ([]engine.Expr, []string, error) {
	out := make([]engine.Expr, 0, len(exprs))
	names := make([]string, 0, len(exprs))
	for _, se := range exprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported select expression %T", se)
		}
		colExpr, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, nil, fmt.Errorf("only plain column references are supported in SELECT, got %T", aliased.Expr)
		}
		ft, err := findField(desc, colExpr.Name.String())
		if err != nil {
			return nil, nil, err
		}
		out = append(out, engine.NewFieldExpr(ft))
		if !aliased.As.IsEmpty() {
			names = append(names, aliased.As.String())
		} else {
			names = append(names, ft.Fname)
		}
	}
	return out, names, nil
}

func findField(desc *engine.TupleDesc, name string) (engine.FieldType, error) {
	for _, f := range desc.Fields {
		if strings.EqualFold(f.Fname, name) {
			return f, nil
		}
	}
	return engine.FieldType{}, fmt.Errorf("no such column %q", name)
}

// applyWhere builds a Filter from the single comparison expr. AND-chains of
// comparisons are folded into nested Filters; anything richer (OR, nested
// boolean algebra, subqueries) is unsupported.
func applyWhere(child engine.Operator, expr sqlparser.Expr) (engine.Operator, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left, err := applyWhere(child, e.Left)
		if err != nil {
			return nil, err
		}
		return applyWhere(left, e.Right)
	case *sqlparser.ComparisonExpr:
		return filterFromComparison(child, e)
	default:
		return nil, fmt.Errorf("unsupported WHERE expression %T", expr)
	}
}

func filterFromComparison(child engine.Operator, cmp *sqlparser.ComparisonExpr) (engine.Operator, error) {
	colExpr, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("WHERE clause left side must be a column, got %T", cmp.Left)
	}
	ft, err := findField(child.Descriptor(), colExpr.Name.String())
	if err != nil {
		return nil, err
	}

	op, err := boolOpFor(cmp.Operator)
	if err != nil {
		return nil, err
	}

	right, err := constExprFor(cmp.Right, ft)
	if err != nil {
		return nil, err
	}

	return engine.NewFilter(engine.NewFieldExpr(ft), op, right, child), nil
}

func boolOpFor(op string) (engine.BoolOp, error) {
	switch op {
	case sqlparser.EqualStr:
		return engine.OpEq, nil
	case sqlparser.NotEqualStr:
		return engine.OpNeq, nil
	case sqlparser.GreaterThanStr:
		return engine.OpGt, nil
	case sqlparser.GreaterEqualStr:
		return engine.OpGe, nil
	case sqlparser.LessThanStr:
		return engine.OpLt, nil
	case sqlparser.LessEqualStr:
		return engine.OpLe, nil
	case sqlparser.LikeStr:
		return engine.OpLike, nil
	default:
		return 0, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func constExprFor(expr sqlparser.Expr, ft engine.FieldType) (engine.Expr, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("WHERE clause right side must be a literal, got %T", expr)
	}
	switch ft.Ftype {
	case engine.IntType:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s is int, cannot parse literal %q", ft.Fname, val.Val)
		}
		return engine.NewConstExpr(engine.IntField{Value: n}, engine.IntType), nil
	case engine.StringType:
		return engine.NewConstExpr(engine.StringField{Value: string(val.Val)}, engine.StringType), nil
	default:
		return nil, fmt.Errorf("column %s has unresolved type", ft.Fname)
	}
}

func limitCount(expr sqlparser.Expr) (int, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return 0, fmt.Errorf("LIMIT must be a literal integer")
	}
	n, err := strconv.Atoi(string(val.Val))
	if err != nil {
		return 0, fmt.Errorf("LIMIT value %q is not an integer", val.Val)
	}
	return n, nil
}

func (p *Planner) planInsert(s *sqlparser.Insert) (engine.Operator, error) {
	info, err := p.resolveTable(s.Table.Name.String())
	if err != nil {
		return nil, err
	}
	rows, ok := s.Rows.(sqlparser.Values)
	if !ok {
		return nil, fmt.Errorf("only INSERT ... VALUES is supported")
	}

	var tuples []*engine.Tuple
	for _, row := range rows {
		if len(row) != len(info.Desc.Fields) {
			return nil, fmt.Errorf("row has %d values, table %s has %d columns", len(row), info.Name, len(info.Desc.Fields))
		}
		fields := make([]engine.DBValue, len(row))
		for i, e := range row {
			val, ok := e.(*sqlparser.SQLVal)
			if !ok {
				return nil, fmt.Errorf("INSERT values must be literals, got %T", e)
			}
			switch info.Desc.Fields[i].Ftype {
			case engine.IntType:
				n, err := strconv.ParseInt(string(val.Val), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("column %s is int, cannot parse %q", info.Desc.Fields[i].Fname, val.Val)
				}
				fields[i] = engine.IntField{Value: n}
			case engine.StringType:
				fields[i] = engine.StringField{Value: string(val.Val)}
			}
		}
		tuples = append(tuples, &engine.Tuple{Desc: *info.Desc, Fields: fields})
	}

	return engine.NewInsert(p.db.BufferPool, info.File, engine.NewTupleSource(tuples, info.Desc)), nil
}

func (p *Planner) planDelete(s *sqlparser.Delete) (engine.Operator, error) {
	if len(s.TableExprs) != 1 {
		return nil, fmt.Errorf("only single-table DELETE is supported")
	}
	name, err := tableExprName(s.TableExprs[0])
	if err != nil {
		return nil, err
	}
	info, err := p.resolveTable(name)
	if err != nil {
		return nil, err
	}

	var op engine.Operator = engine.NewSeqScan(info.File, info.Name)
	if s.Where != nil {
		op, err = applyWhere(op, s.Where.Expr)
		if err != nil {
			return nil, err
		}
	}
	return engine.NewDelete(p.db.BufferPool, info.File, op), nil
}
