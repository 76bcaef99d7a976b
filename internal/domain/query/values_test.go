package query

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestValuesFromJSON(t *testing.T) {
	Convey("Given JSON field objects", t, func() {
		Convey("When values are strings, numbers and null", func() {
			form, err := ValuesFromJSON([]byte(`{"passing_yards_pg":"250","ints_pg":0.5,"k":null,"mode":"offense"}`))

			Convey("Then each becomes its form text", func() {
				So(err, ShouldBeNil)
				So(form.Get(FieldPassingYardsPG), ShouldEqual, "250")
				So(form.Get(FieldIntsPG), ShouldEqual, "0.5")
				So(form.Get(FieldK), ShouldEqual, "")
				So(form.Get("mode"), ShouldEqual, "offense")
			})

			Convey("And they feed the payload like a posted form", func() {
				q := FromForm(form, PolicyOmit)
				So(q.PassingYardsPG, ShouldResemble, Num(250))
				So(q.IntsPG, ShouldResemble, Num(0.5))
				So(q.K, ShouldResemble, Num(DefaultK))
			})
		})

		Convey("When the document is not an object", func() {
			for _, doc := range []string{`[1]`, `"x"`, `null`, `{`} {
				_, err := ValuesFromJSON([]byte(doc))
				So(errors.Is(err, ErrNotAnObject), ShouldBeTrue)
			}
		})
	})
}
