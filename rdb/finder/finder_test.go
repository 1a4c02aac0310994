package finder

import (
	"testing"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/hatlonely/rdbx/rdb/query"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompile(t *testing.T) {
	Convey("测试 Compile 方法", t, func() {
		Convey("最简查询", func() {
			sql, err := Compile(&QuerySpec{Table: "users"}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `users`")
		})

		Convey("所有子句", func() {
			sql, err := Compile(&QuerySpec{
				Table:      "users",
				CountRows:  true,
				IndexHint:  []string{"idx_age", "idx_name, idx_x"},
				Joins:      []string{"LEFT JOIN posts ON posts.user_id = users.id"},
				Conditions: "age > ? AND name = ?",
				Args:       []any{18, "tom"},
				Group:      "users.id",
				Having:     "count(*) > 1",
				Order:      "created_at desc",
				Limit:      10,
				Offset:     20,
				Lock:       true,
			}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT SQL_CALC_FOUND_ROWS `users`.* FROM `users` "+
				"FORCE INDEX (`idx_age`,`idx_name`,`idx_x`) "+
				"LEFT JOIN posts ON posts.user_id = users.id "+
				"WHERE (age > 18 AND name = 'tom') "+
				"GROUP BY users.id HAVING count(*) > 1 "+
				"ORDER BY created_at desc LIMIT 20, 10 FOR UPDATE")
		})

		Convey("没有表名时默认 select 为 *", func() {
			sql, err := Compile(&QuerySpec{From: "x", Joins: []string{"JOIN y"}}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM x JOIN y")
		})

		Convey("与作用域合并", func() {
			spec := &QuerySpec{
				Table:      "users",
				Joins:      []string{"JOIN a ON a.id = users.a_id", "JOIN b ON b.id = users.b_id"},
				Conditions: "id > ?",
				Args:       []any{3},
				Order:      "a, b desc",
				IndexHint:  []string{"idx_x"},
			}
			scope := &Scope{
				Select:     "id, name",
				From:       "`users_archive`",
				Joins:      []string{"JOIN a ON a.id = users.a_id"},
				Conditions: "deleted = ?",
				Args:       []any{false},
				Order:      "b, c",
				IndexHint:  []string{"idx_s"},
				Limit:      5,
			}
			sql, err := Compile(spec, scope)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT id, name FROM `users_archive` FORCE INDEX (`idx_s`) "+
				"JOIN a ON a.id = users.a_id JOIN b ON b.id = users.b_id "+
				"WHERE (id > 3) AND (deleted = 0) ORDER BY a, b, c LIMIT 5")

			Convey("显式 select 优先于作用域", func() {
				spec.Select = "name"
				sql, err := Compile(spec, scope)
				So(err, ShouldBeNil)
				So(sql, ShouldStartWith, "SELECT name FROM `users_archive` ")
			})

			Convey("显式 limit 优先于作用域", func() {
				spec.Limit = 50
				sql, err := Compile(spec, scope)
				So(err, ShouldBeNil)
				So(sql, ShouldEndWith, " LIMIT 50")
			})
		})

		Convey("作用域的 group 和 lock", func() {
			sql, err := Compile(&QuerySpec{Table: "t"}, &Scope{
				Group:      "kind",
				Having:     "count(*) > 2",
				LockClause: "LOCK IN SHARE MODE",
			})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `t` GROUP BY kind HAVING count(*) > 2 LOCK IN SHARE MODE")

			sql, err = Compile(&QuerySpec{Table: "t", Group: "name"}, &Scope{Group: "kind", Having: "x", Lock: true})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `t` GROUP BY name FOR UPDATE")
		})

		Convey("没有 limit 时忽略 offset", func() {
			sql, err := Compile(&QuerySpec{Table: "t", Offset: 5}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `t`")
		})

		Convey("显式 from", func() {
			sql, err := Compile(&QuerySpec{From: "(SELECT 1 AS id) AS x"}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM (SELECT 1 AS id) AS x")
		})

		Convey("通过 Where 使用条件构造器", func() {
			conditions, args, err := Where(&query.TermQuery{Field: "name", Value: "tom"})
			So(err, ShouldBeNil)
			sql, err := Compile(&QuerySpec{Table: "users", Conditions: conditions, Args: args}, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `users` WHERE (`name` = 'tom')")
		})

		Convey("错误", func() {
			_, err := Compile(&QuerySpec{}, nil)
			So(errors.Cause(err), ShouldEqual, ErrNoTable)

			_, err = Compile(&QuerySpec{Table: "t", Conditions: "a = ? AND b = ?", Args: []any{1}}, nil)
			So(errors.Cause(err), ShouldEqual, literal.ErrBindCount)

			_, err = Compile(&QuerySpec{Table: "t", Conditions: "a = ?", Args: []any{map[string]int{}}}, nil)
			So(err, ShouldNotBeNil)

			_, _, err = Where(&query.TermQuery{})
			So(errors.Cause(err), ShouldEqual, query.ErrEmptyField)
		})
	})
}

func TestMergeOrder(t *testing.T) {
	Convey("测试 MergeOrder 方法", t, func() {
		So(MergeOrder("a, b desc", "b, c"), ShouldEqual, "a, b, c")
		So(MergeOrder("a, b, c", "b, c"), ShouldEqual, "a, b, c")
		So(MergeOrder(MergeOrder("x asc, y", "y desc"), "y desc"), ShouldEqual, "x asc, y desc")
		So(MergeOrder("", ""), ShouldEqual, "")
		So(MergeOrder(" , ", " ,"), ShouldEqual, "")
		So(MergeOrder("name  ASC,  id", ""), ShouldEqual, "name ASC, id")
		So(MergeOrder("a, a", ""), ShouldEqual, "a")
		So(MergeOrder("", "c, d"), ShouldEqual, "c, d")
		So(MergeOrder("x desc", "x asc"), ShouldEqual, "x asc")
	})
}

func TestScopeStack(t *testing.T) {
	Convey("测试 Scope.Stack 方法", t, func() {
		outer := &Scope{
			Select:     "id",
			Joins:      []string{"JOIN a"},
			Conditions: "x = ?",
			Args:       []any{1},
			Order:      "id",
			Limit:      10,
		}
		inner := &Scope{
			Order:      "name",
			Joins:      []string{"JOIN b"},
			Conditions: "y = ?",
			Args:       []any{2},
			Lock:       true,
		}
		merged := outer.Stack(inner)
		So(merged.Select, ShouldEqual, "id")
		So(merged.Order, ShouldEqual, "name")
		So(merged.Joins, ShouldResemble, []string{"JOIN a", "JOIN b"})
		So(merged.Conditions, ShouldEqual, "(x = ?) AND (y = ?)")
		So(merged.Args, ShouldResemble, []any{1, 2})
		So(merged.Limit, ShouldEqual, 10)
		So(merged.Lock, ShouldBeTrue)

		Convey("不修改原作用域", func() {
			So(outer.Joins, ShouldResemble, []string{"JOIN a"})
			So(outer.Conditions, ShouldEqual, "x = ?")
			So(outer.Lock, ShouldBeFalse)
		})

		Convey("nil 作用域", func() {
			var none *Scope
			So(none.Stack(nil), ShouldBeNil)
			So(none.Stack(inner).Conditions, ShouldEqual, "y = ?")
			So(outer.Stack(nil).Conditions, ShouldEqual, "x = ?")
		})

		Convey("叠加后的作用域用于编译", func() {
			sql, err := Compile(&QuerySpec{Table: "t"}, merged)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT id FROM `t` JOIN a JOIN b WHERE ((x = 1) AND (y = 2)) ORDER BY name LIMIT 10 FOR UPDATE")
		})
	})
}

func TestCompileWithJoins(t *testing.T) {
	Convey("测试 CompileWithJoins 方法", t, func() {
		spec := &QuerySpec{
			Table:      "posts",
			Conditions: "posts.published = ?",
			Args:       []any{true},
			Order:      "posts.id desc",
			Limit:      10,
		}
		joins := &JoinSpec{
			ColumnAliases:    "`posts`.`id` AS t0_r0, `comments`.`id` AS t1_r0",
			AssociationJoins: "LEFT OUTER JOIN `comments` ON comments.post_id = posts.id",
		}

		Convey("不能直接 LIMIT 时使用 limited ids 子查询", func() {
			sql, err := CompileWithJoins(spec, nil, joins)
			So(err, ShouldBeNil)
			inner := "SELECT DISTINCT `posts`.`id` FROM `posts` " +
				"LEFT OUTER JOIN `comments` ON comments.post_id = posts.id " +
				"WHERE (posts.published = 1) ORDER BY posts.id desc LIMIT 10"
			So(sql, ShouldEqual, "SELECT `posts`.`id` AS t0_r0, `comments`.`id` AS t1_r0 FROM `posts` "+
				"LEFT OUTER JOIN `comments` ON comments.post_id = posts.id "+
				"WHERE (posts.published = 1) AND `posts`.`id` IN (SELECT `id` FROM ("+inner+") AS limited_ids) "+
				"ORDER BY posts.id desc")
		})

		Convey("主键以外的排序表达式加入 DISTINCT 列表", func() {
			spec.Order = "posts.created_at desc, posts.id"
			spec.Offset = 20
			sql, err := CompileWithJoins(spec, &Scope{Order: "`comments`.`id` ASC, posts.created_at desc"}, joins)
			So(err, ShouldBeNil)
			inner := "SELECT DISTINCT `posts`.`id`, `comments`.`id` AS limited_order_0, posts.created_at AS limited_order_1 " +
				"FROM `posts` LEFT OUTER JOIN `comments` ON comments.post_id = posts.id " +
				"WHERE (posts.published = 1) ORDER BY posts.id, `comments`.`id` ASC, posts.created_at desc LIMIT 20, 10"
			So(sql, ShouldContainSubstring, "`posts`.`id` IN (SELECT `id` FROM ("+inner+") AS limited_ids)")
		})

		Convey("可以直接 LIMIT", func() {
			joins.Limitable = true
			sql, err := CompileWithJoins(spec, nil, joins)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT `posts`.`id` AS t0_r0, `comments`.`id` AS t1_r0 FROM `posts` "+
				"LEFT OUTER JOIN `comments` ON comments.post_id = posts.id "+
				"WHERE (posts.published = 1) ORDER BY posts.id desc LIMIT 10")
		})

		Convey("注入的 limited ids 构造器", func() {
			joins.LimitedIDs = func(spec *QuerySpec, scope *Scope, joins *JoinSpec) (string, error) {
				return "`posts`.`id` IN (1,2)", nil
			}
			sql, err := CompileWithJoins(spec, nil, joins)
			So(err, ShouldBeNil)
			So(sql, ShouldContainSubstring, "WHERE (posts.published = 1) AND `posts`.`id` IN (1,2) ORDER BY")
			So(sql, ShouldNotContainSubstring, "LIMIT")

			Convey("构造器出错", func() {
				joins.LimitedIDs = func(*QuerySpec, *Scope, *JoinSpec) (string, error) {
					return "", errors.New("boom")
				}
				_, err := CompileWithJoins(spec, nil, joins)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("没有分页时不构造子查询", func() {
			called := false
			joins.LimitedIDs = func(*QuerySpec, *Scope, *JoinSpec) (string, error) {
				called = true
				return "", nil
			}
			spec.Limit = 0
			sql, err := CompileWithJoins(spec, nil, joins)
			So(err, ShouldBeNil)
			So(called, ShouldBeFalse)
			So(sql, ShouldEndWith, "WHERE (posts.published = 1) ORDER BY posts.id desc")
		})

		Convey("作用域的 limit 也会触发子查询", func() {
			spec.Limit = 0
			sql, err := CompileWithJoins(spec, &Scope{Limit: 3}, joins)
			So(err, ShouldBeNil)
			So(sql, ShouldContainSubstring, "ORDER BY posts.id desc LIMIT 3) AS limited_ids)")
		})

		Convey("索引提示紧跟 FROM", func() {
			spec.CountRows = true
			spec.IndexHint = []string{"idx_pub"}
			joins.Limitable = true
			sql, err := CompileWithJoins(spec, nil, joins)
			So(err, ShouldBeNil)
			So(sql, ShouldStartWith, "SELECT SQL_CALC_FOUND_ROWS `posts`.`id` AS t0_r0, `comments`.`id` AS t1_r0 "+
				"FROM `posts` FORCE INDEX (`idx_pub`) LEFT OUTER JOIN")
		})

		Convey("nil JoinSpec 退化为普通模式", func() {
			sql, err := CompileWithJoins(&QuerySpec{Table: "t"}, nil, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "SELECT * FROM `t`")
		})
	})
}

func TestCompileSelectColumns(t *testing.T) {
	Convey("测试 CompileSelectColumns 方法", t, func() {
		sql, err := CompileSelectColumns(&QuerySpec{
			Table:      "users",
			Conditions: "age > ?",
			Args:       []any{1},
			Order:      "id",
			Limit:      3,
			Lock:       true,
		}, &Scope{Conditions: "deleted = 0"}, "id", "name")
		So(err, ShouldBeNil)
		So(sql, ShouldEqual, "SELECT `id`,`name` FROM `users` WHERE (age > 1) AND (deleted = 0) ORDER BY id LIMIT 3")

		_, err = CompileSelectColumns(&QuerySpec{Table: "users"}, nil)
		So(errors.Cause(err), ShouldEqual, ErrNoColumns)
	})
}
