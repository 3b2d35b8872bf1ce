package dom

// queryJS 查询实现。文本锚点只取文档顺序中第一个最深匹配。
// 可见性判断与 jQuery :visible 一致：元素有布局盒且不是 visibility:hidden。
const queryJS = `function(q){
  var seq = window.__e2eRefSeq || 0;
  function visible(el){
    if (!el.isConnected) return false;
    var st = window.getComputedStyle(el);
    if (st.visibility === 'hidden' || st.display === 'none') return false;
    var r = el.getBoundingClientRect();
    return r.width > 0 || r.height > 0 || el.getClientRects().length > 0;
  }
  function text(el){ return (el.innerText !== undefined ? el.innerText : el.textContent) || ''; }
  function deepest(test){
    var all = document.body ? document.body.querySelectorAll('*') : [];
    var out = [];
    for (var i = 0; i < all.length; i++) {
      var el = all[i];
      if (el.tagName === 'SCRIPT' || el.tagName === 'STYLE') continue;
      if (!test(el)) continue;
      var inner = false;
      for (var c = el.firstElementChild; c; c = c.nextElementSibling) {
        if (test(c)) { inner = true; break; }
      }
      if (!inner) out.push(el);
    }
    return out;
  }
  var set = [];
  if (q.selectors && q.selectors.length) {
    for (var s = 0; s < q.selectors.length; s++) {
      var found = Array.prototype.slice.call(document.querySelectorAll(q.selectors[s]));
      if (q.visible && !q.find && !q.parents) found = found.filter(visible);
      if (found.length) { set = found; break; }
    }
  } else if (q.pattern) {
    var re = new RegExp(q.pattern, q.flags || '');
    set = deepest(function(el){ return re.test(text(el).trim()); });
  } else if (q.text) {
    set = deepest(function(el){ return text(el).indexOf(q.text) >= 0; });
  }
  if (!(q.selectors && q.selectors.length)) set = set.slice(0, 1);
  if (q.parents) {
    var anc = [];
    set.forEach(function(el){
      var p = el.parentElement, n = 0;
      while (p && (q.parents < 0 || n < q.parents)) {
        n++;
        if (q.parents < 0 || n === q.parents) anc.push(p);
        p = p.parentElement;
      }
    });
    set = anc;
  }
  if (q.find) {
    var seen = new Set(), desc = [];
    set.forEach(function(el){
      el.querySelectorAll(q.find).forEach(function(d){
        if (!seen.has(d)) { seen.add(d); desc.push(d); }
      });
    });
    desc.sort(function(a, b){
      return a.compareDocumentPosition(b) & Node.DOCUMENT_POSITION_FOLLOWING ? -1 : 1;
    });
    set = desc;
  }
  if (q.visible) set = set.filter(visible);
  return set.map(function(el){
    var ref = el.getAttribute('data-e2e-ref');
    if (!ref) { seq++; ref = 'e' + seq; el.setAttribute('data-e2e-ref', ref); }
    var attrs = {};
    for (var i = 0; i < el.attributes.length; i++) attrs[el.attributes[i].name] = el.attributes[i].value;
    if (el.tagName === 'IMG') attrs['currentSrc'] = el.currentSrc || el.src || '';
    if ('value' in el && typeof el.value === 'string') attrs['value'] = el.value;
    window.__e2eRefSeq = seq;
    return { ref: ref, tag: el.tagName.toLowerCase(), text: text(el).trim().slice(0, 500),
      visible: visible(el), disabled: !!el.disabled || el.getAttribute('aria-disabled') === 'true', attrs: attrs };
  });
}`

// ClickJS 依次派发指针与鼠标事件后调用 click，与用户点击的事件序列一致
const ClickJS = `el.scrollIntoView({block: 'center', inline: 'center'});
var r = el.getBoundingClientRect(), x = r.left + r.width / 2, y = r.top + r.height / 2;
var opts = {bubbles: true, cancelable: true, composed: true, clientX: x, clientY: y, button: 0, view: window};
['pointerdown', 'mousedown', 'pointerup', 'mouseup'].forEach(function(t){
  var E = t.indexOf('pointer') === 0 && window.PointerEvent ? PointerEvent : MouseEvent;
  el.dispatchEvent(new E(t, opts));
});
el.click();
return true;`

// FocusJS 聚焦元素并把光标移到末尾
const FocusJS = `el.scrollIntoView({block: 'center'});
el.focus();
if (typeof el.setSelectionRange === 'function' && typeof el.value === 'string') {
  try { el.setSelectionRange(el.value.length, el.value.length); } catch (e) {}
}
return document.activeElement === el;`

// ClearJS 通过原生 setter 清空输入框并触发 input/change，受控组件也能感知
const ClearJS = `el.focus();
var proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
var desc = Object.getOwnPropertyDescriptor(proto, 'value');
if (desc && desc.set) { desc.set.call(el, ''); } else { el.value = ''; }
el.dispatchEvent(new Event('input', {bubbles: true}));
el.dispatchEvent(new Event('change', {bubbles: true}));
return true;`

// LocationJS 当前地址
const LocationJS = `window.location.href`

// BodyHTMLJS 页面 body 的 HTML
const BodyHTMLJS = `document.body ? document.body.outerHTML : ''`

// LocalStorageJS 导出 localStorage 全部键值
const LocalStorageJS = `(function(){
  var out = {};
  for (var i = 0; i < window.localStorage.length; i++) {
    var k = window.localStorage.key(i);
    out[k] = window.localStorage.getItem(k);
  }
  return out;
})()`

// ReadyStateJS 文档加载状态
const ReadyStateJS = `document.readyState`
