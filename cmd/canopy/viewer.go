package main

// viewerHTML is the interactive tree viewer served at /. It renders the
// /api/tree payload as a d3 collapsible tree; clicking a node folds or
// unfolds its branch. Node names arrive pre-escaped (&leq;/&geq;), so
// labels use innerHTML-equivalent text handling on purpose.
const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Canopy</title>
<style>
  :root {
    --bg: #1a1b26; --fg: #a9b1d6; --accent: #7aa2f7;
    --card-bg: #24283b; --border: #414868;
    --green: #9ece6a; --yellow: #e0af68; --dim: #565f89;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: "Berkeley Mono", "JetBrains Mono", monospace;
    background: var(--bg); color: var(--fg); min-height: 100vh;
  }
  header {
    display: flex; align-items: center; gap: 1rem;
    padding: 1rem 1.5rem; border-bottom: 1px solid var(--border);
  }
  h1 { color: var(--accent); font-size: 1.2rem; }
  select, label {
    background: var(--card-bg); color: var(--fg);
    border: 1px solid var(--border); border-radius: 6px;
    padding: 0.35rem 0.6rem; font: inherit;
  }
  label { display: flex; align-items: center; gap: 0.4rem; cursor: pointer; }
  .meta { color: var(--dim); font-size: 0.8rem; margin-left: auto; }
  .empty-state { color: var(--dim); font-style: italic; padding: 2rem; }
  #tree { width: 100%; overflow: auto; }
  .link { fill: none; stroke: var(--border); stroke-width: 1.5px; }
  .node circle { stroke-width: 1.5px; cursor: pointer; }
  .node text { font-size: 12px; fill: var(--fg); }
  .node .count { fill: var(--dim); font-size: 10px; }
</style>
</head>
<body>
  <header>
    <h1>canopy</h1>
    <select id="ruleset"></select>
    <label><input type="checkbox" id="merge"> merge chains</label>
    <div class="meta" id="meta"></div>
  </header>
  <div id="tree"><div class="empty-state">No ruleset selected</div></div>
  <script src="https://cdn.jsdelivr.net/npm/d3@7"></script>
  <script>
    var svg = null, g = null, root = null;
    var dx = 28, dy = 260;

    function classLine(counts) {
      var parts = [];
      Object.keys(counts || {}).sort().forEach(function(k) {
        parts.push(k + ":" + counts[k]);
      });
      return parts.join(" ");
    }

    function nodeColor(d) {
      return d.data.score !== undefined ? "var(--green)" : "var(--accent)";
    }

    function render(data) {
      d3.select("#tree").selectAll("*").remove();
      svg = d3.select("#tree").append("svg");
      g = svg.append("g");

      root = d3.hierarchy(data);
      root.x0 = 0;
      root.y0 = 0;
      root.descendants().forEach(function(d, i) { d.id = i; });

      document.getElementById("meta").textContent =
        (root.data.num_descendants + 1) + " nodes · " + classLine(root.data.class_counts);

      update(root);
    }

    function update(source) {
      d3.tree().nodeSize([dx, dy])(root);

      var nodes = root.descendants();
      var links = root.links();

      var x0 = Infinity, x1 = -Infinity;
      nodes.forEach(function(d) {
        if (d.x < x0) x0 = d.x;
        if (d.x > x1) x1 = d.x;
      });
      var height = x1 - x0 + 2 * dx;
      var width = (d3.max(nodes, function(d) { return d.depth; }) + 1) * dy + 200;
      svg.attr("width", width).attr("height", height)
         .attr("viewBox", [-dy / 2, x0 - dx, width, height]);

      var link = g.selectAll("path.link").data(links, function(d) { return d.target.id; });
      link.enter().append("path").attr("class", "link")
        .merge(link)
        .transition().duration(200)
        .attr("d", d3.linkHorizontal()
          .x(function(d) { return d.y; })
          .y(function(d) { return d.x; }));
      link.exit().remove();

      var node = g.selectAll("g.node").data(nodes, function(d) { return d.id; });

      var enter = node.enter().append("g").attr("class", "node")
        .attr("transform", function(d) { return "translate(" + d.y + "," + d.x + ")"; })
        .on("click", function(event, d) {
          if (d.children) { d._children = d.children; d.children = null; }
          else if (d._children) { d.children = d._children; d._children = null; }
          update(d);
        });

      enter.append("circle").attr("r", 5);
      enter.append("text").attr("dy", "0.32em");
      enter.append("text").attr("class", "count").attr("dy", "1.5em").attr("x", 8);
      enter.append("title");

      var all = enter.merge(node);
      all.transition().duration(200)
        .attr("transform", function(d) { return "translate(" + d.y + "," + d.x + ")"; });
      all.select("circle")
        .attr("fill", function(d) { return (d.children || !d._children) && d.data.score === undefined ? "var(--card-bg)" : nodeColor(d); })
        .attr("stroke", nodeColor);
      all.select("text")
        .attr("x", function(d) { return d.children ? -10 : 10; })
        .attr("text-anchor", function(d) { return d.children ? "end" : "start"; })
        .html(function(d) {
          var label = d.data.name;
          if (d.data.score !== undefined) label += " (" + d.data.score + ")";
          return label;
        });
      all.select("text.count").text(function(d) {
        return d.data.score === undefined ? classLine(d.data.class_counts) : "";
      });
      all.select("title").text(function(d) {
        return d.data.name +
          "\ndepth " + d.data.depth +
          "\n" + d.data.num_descendants + " descendants" +
          "\n" + classLine(d.data.class_counts);
      });

      node.exit().remove();
    }

    function loadTree() {
      var name = document.getElementById("ruleset").value;
      if (!name) return;
      var merge = document.getElementById("merge").checked ? "1" : "0";
      fetch("/api/tree?ruleset=" + encodeURIComponent(name) + "&merge=" + merge)
        .then(function(r) {
          if (!r.ok) throw new Error("tree fetch failed: " + r.status);
          return r.json();
        })
        .then(render)
        .catch(function(err) {
          document.getElementById("tree").innerHTML =
            '<div class="empty-state">' + err.message + "</div>";
        });
    }

    fetch("/api/rulesets")
      .then(function(r) { return r.json(); })
      .then(function(entries) {
        var sel = document.getElementById("ruleset");
        entries.forEach(function(e) {
          var opt = document.createElement("option");
          opt.value = e.name;
          opt.textContent = e.name + " (" + e.rule_count + " rules)";
          sel.appendChild(opt);
        });
        sel.addEventListener("change", loadTree);
        document.getElementById("merge").addEventListener("change", loadTree);
        if (entries.length > 0) loadTree();
        else document.getElementById("tree").innerHTML =
          '<div class="empty-state">Catalog is empty. Import a ruleset with: canopy import rules.yaml</div>';
      });
  </script>
</body>
</html>
`
