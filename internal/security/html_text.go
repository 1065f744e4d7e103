// Package security はアプリケーションのセキュリティ機能を提供する。
//
// HTMLText はHTMLで返ってきたAPIのエラーレスポンス（Railsやリバースプロキシのエラーページ）から
// 本文テキストだけを取り出す。JSONの文字列値はプレーンテキストなのでここを通さず、
// html/templateのエスケープに任せる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLText はbluemondayのStrictPolicyでタグを除去する。スレッドセーフ。
type HTMLText struct {
	policy *bluemonday.Policy
}

// NewHTMLText はHTMLTextの新しいインスタンスを生成する。
func NewHTMLText() *HTMLText {
	p := bluemonday.StrictPolicy()
	// <td>a</td><td>b</td> が "ab" にならないようにする
	p.AddSpaceWhenStrippingTag(true)
	return &HTMLText{policy: p}
}

// Extract はHTML文書からタグを除き、文字参照をデコードして空白をまとめたテキストを返す。
// script, style, titleなどの要素は中身ごと除去する。
// maxRunesを超える部分は切り詰めて "..." を付ける。0以下なら切り詰めない。
func (h *HTMLText) Extract(doc string, maxRunes int) string {
	if doc == "" {
		return ""
	}
	text := html.UnescapeString(h.policy.Sanitize(doc))
	text = strings.Join(strings.Fields(text), " ")

	if maxRunes > 0 {
		if r := []rune(text); len(r) > maxRunes {
			return string(r[:maxRunes]) + "..."
		}
	}
	return text
}
