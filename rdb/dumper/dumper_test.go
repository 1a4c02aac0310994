package dumper

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func strPtr(s string) *string {
	return &s
}

func usersTable() *schema.StaticRelation {
	return schema.StaticTable("users", "ENGINE=InnoDB AUTO_INCREMENT=3 DEFAULT CHARSET=utf8", "",
		[]*schema.Column{
			schema.NewColumn("id", "int(11)", nil, false),
			schema.NewColumn("name", "varchar(64)", nil, false),
			schema.NewColumn("age", "int(11)", strPtr("18"), true),
			schema.NewColumn("bio", "text", nil, true),
		},
		&schema.Index{Name: "idx_name", Table: "users", Columns: []string{"name"}, Unique: true},
		&schema.Index{Name: "fulltext_bio", Table: "users", Columns: []string{"bio"}},
	)
}

func postsTable() *schema.StaticRelation {
	return schema.StaticTable("posts", "ENGINE=InnoDB", "uid",
		[]*schema.Column{
			schema.NewColumn("title", "varchar(255)", strPtr("untitled"), true),
			schema.NewColumn("published", "tinyint(1)", strPtr("0"), false),
			schema.NewColumn("score", "decimal(10,2)", nil, true),
		},
	)
}

func eventsTable() *schema.StaticRelation {
	return schema.StaticTable("events", "ENGINE=InnoDB", "",
		[]*schema.Column{
			schema.NewColumn("id", "int(11)", nil, false),
			schema.NewColumn("payload", "json", nil, true),
		},
	)
}

const usersBlock = "  create_table \"users\", options: 'ENGINE=InnoDB DEFAULT CHARSET=utf8', force: true do |t|\n" +
	"    t.string  \"name\", limit: 64," + "              " + "null: false\n" +
	"    t.integer \"age\"," + "             " + "default: 18\n" +
	"    t.text    \"bio\"\n" +
	"  end\n" +
	"\n" +
	"  add_fulltext_index \"users\", [\"bio\"], name: \"fulltext_bio\"\n" +
	"  add_index \"users\", [\"name\"], name: \"idx_name\", unique: true\n" +
	"\n"

func TestDumperTable(t *testing.T) {
	Convey("测试 Dumper.Table 方法", t, func() {
		ctx := context.Background()
		provider := schema.NewStaticProvider(schema.MySQLTypes, usersTable(), postsTable(), eventsTable())
		d, err := NewDumperWithOptions(provider, &Options{})
		So(err, ShouldBeNil)

		Convey("列对齐和索引排序", func() {
			var buf bytes.Buffer
			So(d.Table(ctx, &buf, "users"), ShouldBeNil)
			So(buf.String(), ShouldEqual, usersBlock)
		})

		Convey("没有隐式主键的表", func() {
			var buf bytes.Buffer
			So(d.Table(ctx, &buf, "posts"), ShouldBeNil)
			lines := strings.Split(buf.String(), "\n")
			So(lines[0], ShouldEqual, "  create_table \"posts\", id: false, options: 'ENGINE=InnoDB', force: true do |t|")
			So(lines[1], ShouldEqual, "    t.string  \"title\","+strings.Repeat(" ", 30)+"default: \"untitled\"")
			So(lines[2], ShouldEqual, "    t.boolean \"published\","+strings.Repeat(" ", 26)+"default: false,"+strings.Repeat(" ", 6)+"null: false")
			So(lines[3], ShouldEqual, "    t.decimal \"score\","+strings.Repeat(" ", 5)+"precision: 10, scale: 2")
			So(lines[4], ShouldEqual, "  end")
		})

		Convey("自定义主键", func() {
			provider := schema.NewStaticProvider(schema.MySQLTypes, schema.StaticTable("tags", "ENGINE=InnoDB", "tag_id",
				[]*schema.Column{
					schema.NewColumn("tag_id", "int(11)", nil, false),
					schema.NewColumn("label", "varchar(32)", nil, true),
				},
			))
			d, err := NewDumperWithOptions(provider, nil)
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(d.Table(ctx, &buf, "tags"), ShouldBeNil)
			So(buf.String(), ShouldEqual, "  create_table \"tags\", primary_key: \"tag_id\", options: 'ENGINE=InnoDB', force: true do |t|\n"+
				"    t.string \"label\", limit: 32\n"+
				"  end\n\n")
		})

		Convey("未知类型只影响当前表", func() {
			var buf bytes.Buffer
			err := d.Table(ctx, &buf, "events")
			var relErr *RelationError
			So(errors.As(err, &relErr), ShouldBeTrue)
			var typeErr *schema.UnknownTypeError
			So(errors.As(err, &typeErr), ShouldBeTrue)
			So(typeErr.Column, ShouldEqual, "payload")
			So(buf.String(), ShouldEqual, "# Could not dump table \"events\" because of following UnknownTypeError\n"+
				"#   Unknown type 'json' for column 'payload'\n\n")
		})
	})
}

func TestDumperView(t *testing.T) {
	Convey("测试 Dumper.View 方法", t, func() {
		provider := schema.NewStaticProvider(schema.MySQLTypes, schema.StaticView("active_users",
			"CREATE ALGORITHM=UNDEFINED DEFINER=`root`@`localhost` SQL SECURITY DEFINER VIEW `active_users` AS "+
				"select `users`.`name` AS `name` from `users` where (`users`.`name` <> \"\")"))
		d, err := NewDumperWithOptions(provider, &Options{})
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(d.View(context.Background(), &buf, "active_users"), ShouldBeNil)
		So(buf.String(), ShouldEqual, "  execute(\n"+
			"    \"CREATE ALGORITHM=UNDEFINED VIEW `active_users` AS select `users`.`name` AS `name` from `users` where (`users`.`name` <> \\\"\\\")\"\n"+
			"  )\n")
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDumperDump(t *testing.T) {
	Convey("测试 Dumper.Dump 方法", t, func() {
		ctx := context.Background()
		provider := schema.NewStaticProvider(schema.MySQLTypes,
			usersTable(),
			eventsTable(),
			postsTable(),
			schema.StaticView("active_users", "CREATE VIEW `active_users` AS select 1"),
			schema.StaticTable("schema_info", "ENGINE=InnoDB", "", nil),
			schema.StaticTable("tmp_import", "ENGINE=InnoDB", "", nil),
			schema.StaticTable("legacy", "ENGINE=InnoDB", "", nil),
		)

		Convey("表在前视图在后，失败的表输出注释", func() {
			d, err := NewDumperWithOptions(provider, &Options{
				IgnoreTables:   []string{"legacy"},
				IgnorePatterns: []string{"^tmp_"},
			})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			res, err := d.Dump(ctx, &buf)
			So(err, ShouldBeNil)
			So(res.Tables, ShouldResemble, []string{"posts", "users"})
			So(res.Views, ShouldResemble, []string{"active_users"})
			So(len(res.Failures), ShouldEqual, 1)
			So(res.Failures[0].Relation, ShouldEqual, "events")

			out := buf.String()
			So(strings.Count(out, "create_table"), ShouldEqual, 2)
			So(out, ShouldStartWith, "# Could not dump table \"events\" because of following UnknownTypeError\n")
			So(out, ShouldContainSubstring, usersBlock)
			So(out, ShouldEndWith, "  execute(\n    \"CREATE VIEW `active_users` AS select 1\"\n  )\n")
			So(strings.Index(out, "\"posts\""), ShouldBeLessThan, strings.Index(out, "\"users\""))
			So(out, ShouldNotContainSubstring, "schema_info")
			So(out, ShouldNotContainSubstring, "tmp_import")
			So(out, ShouldNotContainSubstring, "legacy")
		})

		Convey("文件头和结尾", func() {
			d, err := NewDumperWithOptions(provider, &Options{Header: true, Version: "20240101", IgnoreTables: []string{"events"}})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			_, err = d.Dump(ctx, &buf)
			So(err, ShouldBeNil)
			So(buf.String(), ShouldStartWith, "# This file is auto-generated from the current state of the database.\n")
			So(buf.String(), ShouldContainSubstring, "Schema.define(version: 20240101) do\n\n  create_table \"legacy\"")
			So(buf.String(), ShouldEndWith, "  )\nend\n")
		})

		Convey("无法分类和元数据错误", func() {
			provider := schema.NewStaticProvider(schema.MySQLTypes,
				&schema.StaticRelation{Name: "odd", Create: map[string]string{"Name": "odd", "Sql": "..."}},
				&schema.StaticRelation{Name: "gone", Err: errors.New("table doesn't exist")},
				usersTable(),
			)
			d, err := NewDumperWithOptions(provider, &Options{})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			res, err := d.Dump(ctx, &buf)
			So(err, ShouldBeNil)
			So(res.Tables, ShouldResemble, []string{"users"})
			So(len(res.Failures), ShouldEqual, 2)
			So(buf.String(), ShouldContainSubstring, "# Could not dump table \"gone\" because of following MetadataError\n")
			So(buf.String(), ShouldContainSubstring, "# Could not dump table \"odd\" because of following ClassifyError\n")
		})

		Convey("写入失败", func() {
			d, err := NewDumperWithOptions(provider, &Options{})
			So(err, ShouldBeNil)
			_, err = d.Dump(ctx, failingWriter{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "disk full")
		})

		Convey("非法的忽略规则", func() {
			_, err := NewDumperWithOptions(provider, &Options{IgnorePatterns: []string{"("}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIndexOrdering(t *testing.T) {
	Convey("测试索引按渲染文本排序", t, func() {
		provider := schema.NewStaticProvider(schema.MySQLTypes, schema.StaticTable("articles", "ENGINE=MyISAM", "",
			[]*schema.Column{
				schema.NewColumn("id", "int(11)", nil, false),
				schema.NewColumn("title", "varchar(255)", nil, true),
				schema.NewColumn("name", "varchar(255)", nil, true),
			},
			&schema.Index{Name: "idx_name", Table: "articles", Columns: []string{"name"}},
			&schema.Index{Name: "fulltext_title_idx", Table: "articles", Columns: []string{"title"}},
		))
		d, err := NewDumperWithOptions(provider, nil)
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(d.Table(context.Background(), &buf, "articles"), ShouldBeNil)
		So(buf.String(), ShouldEndWith, "  end\n\n"+
			"  add_fulltext_index \"articles\", [\"title\"], name: \"fulltext_title_idx\"\n"+
			"  add_index \"articles\", [\"name\"], name: \"idx_name\"\n\n")
	})
}

func TestFormatDefault(t *testing.T) {
	Convey("测试默认值格式", t, func() {
		for _, c := range []struct {
			sqlType string
			def     string
			expect  string
		}{
			{"int(11)", "42", "42"},
			{"int(11)", "abc", `"abc"`},
			{"float", "1.5", "1.5"},
			{"decimal(8,2)", "0.00", "0.00"},
			{"tinyint(1)", "1", "true"},
			{"tinyint(1)", "0", "false"},
			{"date", "2024-01-01", "'2024-01-01'"},
			{"datetime", "2024-01-01 00:00:00", "'2024-01-01 00:00:00'"},
			{"varchar(16)", `say "hi"`, `"say \"hi\""`},
		} {
			So(formatDefault(schema.NewColumn("c", c.sqlType, strPtr(c.def), true)), ShouldEqual, c.expect)
		}
	})
}
