// Package tmpl 提供 Jinja2 子集的文本模板引擎。
//
// 模板是纯文本，其中嵌入两类构造：
//
//   - 插值 {{ expr }}，expr 为 a.b.c 形式的路径，可接过滤器管道 {{ name|title }}
//   - 指令 {% ... %}，支持 for 循环与 if 条件
//
// # 支持的指令
//
//   - {% for k, v in m.items() %}...{% endfor %} 遍历映射的键值对
//   - {% for k in m.keys() %}...{% endfor %} 遍历映射的键
//   - {% for x in seq %}...{% endfor %} 遍历列表元素或映射的值
//   - {% if a == b %}...{% endif %} 相等比较
//   - {% if a %}...{% else %}...{% endif %} 真值判断
//
// # 内置过滤器
//
//   - title: 将 - 和 _ 替换为空格后转为标题格式
//   - length: 字符串按字符计数，列表与映射按元素计数
//   - join('sep'): 用分隔符连接列表元素
//
// # 渲染约定
//
// 渲染是全函数：无法解析的路径、未知过滤器、不支持的指令都不会产生错误。
// 路径无法解析时输出为空；未知过滤器原样返回输入；不支持的指令被移除。
// 块在同一次解析中一次性构建为语法树，渲染产生的文本不会被再次解释。
//
// 详见 [Engine] 与 [ExpandTemplate]。
package tmpl
